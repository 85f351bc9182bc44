package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/legalvault/internal/ai"
	"github.com/xxxsen/legalvault/internal/corpus"
	"github.com/xxxsen/legalvault/internal/embedcache"
	"github.com/xxxsen/legalvault/internal/model"
	appErr "github.com/xxxsen/legalvault/internal/pkg/errors"
	"github.com/xxxsen/legalvault/internal/similarity"
)

type snapshot struct {
	cases       []*model.Case
	byID        map[string]*model.Case
	ranker      *similarity.Ranker
	fingerprint string
}

// SimilarityService serves queries from an immutable corpus snapshot and
// replaces the snapshot as a whole when the corpus changes.
type SimilarityService struct {
	store    *corpus.Store
	cache    *embedcache.Manager
	embedder ai.Embedder

	writeMu sync.Mutex
	current atomic.Pointer[snapshot]
}

func NewSimilarityService(store *corpus.Store, cache *embedcache.Manager, embedder ai.Embedder) *SimilarityService {
	s := &SimilarityService{store: store, cache: cache, embedder: embedder}
	s.current.Store(newSnapshot(nil, nil, embedder, ""))
	return s
}

func newSnapshot(cases []*model.Case, matrix *embedcache.Matrix, embedder ai.Embedder, fp string) *snapshot {
	byID := make(map[string]*model.Case, len(cases))
	for _, c := range cases {
		id := c.ID()
		if id == "" {
			continue
		}
		if _, ok := byID[id]; !ok {
			byID[id] = c
		}
	}
	return &snapshot{
		cases:       cases,
		byID:        byID,
		ranker:      similarity.NewRanker(embedder, cases, matrix),
		fingerprint: fp,
	}
}

// Start loads the corpus and makes sure its embeddings exist. The corpus is
// published even when the embeddings could not be produced, so keyword
// search and analytics keep working.
func (s *SimilarityService) Start(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	snap, err := s.build(ctx)
	s.current.Store(snap)
	return err
}

// Reload rebuilds the snapshot when the corpus file changed since it was
// last read. It reports whether a new snapshot was published.
func (s *SimilarityService) Reload(ctx context.Context) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.store.Fingerprint() == s.current.Load().fingerprint {
		return false, nil
	}
	logutil.GetLogger(ctx).Info("corpus changed on disk, rebuilding", zap.String("corpus", s.store.Path()))
	if err := s.cache.Invalidate(ctx); err != nil {
		return false, err
	}
	return s.rebuildLocked(ctx)
}

// Import merges cases into the corpus file, then invalidates and rebuilds
// the embeddings.
func (s *SimilarityService) Import(ctx context.Context, cases []*model.Case) (*corpus.AppendResult, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	res, err := s.store.Append(ctx, cases)
	if err != nil {
		return nil, err
	}
	if res.Added == 0 {
		return res, nil
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		return res, err
	}
	if _, err := s.rebuildLocked(ctx); err != nil {
		return res, err
	}
	return res, nil
}

// Embed recomputes embeddings for the current corpus. With force the cache
// file is dropped first.
func (s *SimilarityService) Embed(ctx context.Context, force bool) (*embedcache.Matrix, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if force {
		if err := s.cache.Invalidate(ctx); err != nil {
			return nil, err
		}
	}
	if _, err := s.rebuildLocked(ctx); err != nil {
		return nil, err
	}
	return s.cache.Current()
}

func (s *SimilarityService) rebuildLocked(ctx context.Context) (bool, error) {
	snap, err := s.build(ctx)
	if err != nil && !errors.Is(err, appErr.ErrCacheUnavailable) {
		logutil.GetLogger(ctx).Error("rebuild failed, keep serving previous snapshot", zap.Error(err))
		return false, err
	}
	s.current.Store(snap)
	return true, err
}

func (s *SimilarityService) build(ctx context.Context) (*snapshot, error) {
	logger := logutil.GetLogger(ctx)
	fp := s.store.Fingerprint()
	cases, err := s.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, appErr.ErrCorpusUnavailable) {
			return nil, err
		}
		logger.Warn("corpus unavailable, serving empty corpus", zap.Error(err))
		cases = nil
	}
	matrix, err := s.cache.Ensure(ctx, cases)
	if err != nil {
		return newSnapshot(cases, nil, s.embedder, fp), err
	}
	logger.Info("corpus snapshot ready", zap.Int("cases", len(cases)), zap.String("model", matrix.ModelName))
	return newSnapshot(cases, matrix, s.embedder, fp), nil
}

func (s *SimilarityService) SimilaritySearch(ctx context.Context, text string, topK int) ([]model.ScoredCase, error) {
	return s.current.Load().ranker.FindSimilarByText(ctx, text, topK)
}

func (s *SimilarityService) SimilaritySearchForCase(ctx context.Context, caseID string, topK int) ([]model.ScoredCase, error) {
	snap := s.current.Load()
	c, err := snap.lookup(caseID)
	if err != nil {
		return nil, err
	}
	return snap.ranker.FindSimilarByCase(ctx, c, topK)
}

func (s *SimilarityService) GetCase(caseID string) (*model.Case, error) {
	return s.current.Load().lookup(caseID)
}

func (sn *snapshot) lookup(caseID string) (*model.Case, error) {
	caseID = strings.TrimSpace(caseID)
	if caseID == "" {
		return nil, fmt.Errorf("%w: case id is required", appErr.ErrInvalid)
	}
	c, ok := sn.byID[caseID]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return c, nil
}

// Cases returns the cases of the current snapshot. Callers must not modify
// the slice.
func (s *SimilarityService) Cases() []*model.Case {
	return s.current.Load().cases
}

func (s *SimilarityService) CacheInfo() (state string, matrix *embedcache.Matrix) {
	m, err := s.cache.Current()
	if err != nil {
		return s.cache.State().String(), nil
	}
	return s.cache.State().String(), m
}
