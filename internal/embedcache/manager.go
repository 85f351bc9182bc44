package embedcache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/legalvault/internal/ai"
	"github.com/xxxsen/legalvault/internal/compose"
	"github.com/xxxsen/legalvault/internal/model"
	appErr "github.com/xxxsen/legalvault/internal/pkg/errors"
)

type State int

const (
	StateUninitialized State = iota
	StateLoadCache
	StateCompute
	StateValid
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoadCache:
		return "load_cache"
	case StateCompute:
		return "compute"
	case StateValid:
		return "valid"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Manager owns the embedding matrix of the active corpus and its cache file.
type Manager struct {
	path     string
	embedder ai.Embedder

	mu     sync.Mutex
	state  State
	matrix *Matrix
}

func NewManager(path string, embedder ai.Embedder) *Manager {
	return &Manager{path: path, embedder: embedder}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Ensure returns a matrix row-aligned with cases, loading it from the cache
// file or computing it when the file is missing, unreadable or stale.
func (m *Manager) Ensure(ctx context.Context, cases []*model.Case) (*Matrix, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	logger := logutil.GetLogger(ctx).With(zap.String("cache", m.path), zap.Int("cases", len(cases)))

	if m.state == StateValid && m.matches(m.matrix, len(cases)) {
		if _, err := os.Stat(m.path); err == nil {
			return m.matrix, nil
		}
		logger.Info("embedding cache file gone, reloading")
		m.state = StateUninitialized
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("%w: corpus is empty", appErr.ErrCacheUnavailable)
	}

	prevState := m.state
	m.state = StateLoadCache
	loaded, err := readCacheFile(m.path)
	switch {
	case err == nil && m.matches(loaded, len(cases)):
		m.matrix = loaded
		m.state = StateValid
		logger.Info("embedding cache loaded", zap.String("model", loaded.ModelName), zap.Int("dim", loaded.Dimension))
		return loaded, nil
	case err == nil:
		logger.Info("embedding cache stale, recomputing",
			zap.String("cached_model", loaded.ModelName), zap.String("model", m.embedder.ModelName()),
			zap.Int("cached_cases", loaded.CaseCount))
	case errors.Is(err, os.ErrNotExist):
		logger.Info("embedding cache not found, computing")
	default:
		logger.Warn("embedding cache unreadable, recomputing", zap.Error(err))
	}

	m.state = StateCompute
	computed, err := m.compute(ctx, cases)
	if err != nil {
		m.state = prevState
		logger.Error("compute embeddings failed", zap.Error(err))
		return nil, err
	}
	m.matrix = computed
	m.state = StateValid
	if err := writeCacheFile(m.path, computed); err != nil {
		logger.Error("persist embedding cache failed", zap.Error(err))
	}
	return computed, nil
}

// Current returns the matrix of the last successful Ensure without touching
// the backend or the disk.
func (m *Manager) Current() (*Matrix, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateValid || m.matrix == nil {
		return nil, appErr.ErrCacheUnavailable
	}
	return m.matrix, nil
}

// Invalidate drops the in-memory matrix and deletes the cache file. It must
// be called after the corpus file has been fully rewritten.
func (m *Manager) Invalidate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateUninitialized
	m.matrix = nil
	if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove embedding cache: %w", err)
	}
	logutil.GetLogger(ctx).Info("embedding cache invalidated", zap.String("cache", m.path))
	return nil
}

func (m *Manager) matches(mat *Matrix, count int) bool {
	if mat == nil || mat.CaseCount != count || mat.ModelName != m.embedder.ModelName() {
		return false
	}
	if dim := m.embedder.Dimension(); dim > 0 && mat.Dimension != dim {
		return false
	}
	return true
}

func (m *Manager) compute(ctx context.Context, cases []*model.Case) (*Matrix, error) {
	start := time.Now()
	texts := compose.Texts(cases)
	rows, err := m.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(rows) != len(cases) {
		return nil, fmt.Errorf("%w: got %d vectors for %d cases", appErr.ErrEmbeddingBackend, len(rows), len(cases))
	}
	dim := len(rows[0])
	logutil.GetLogger(ctx).Info("embeddings computed",
		zap.Int("cases", len(cases)), zap.Int("dim", dim),
		zap.String("device", m.embedder.Device()), zap.Duration("cost", time.Since(start)))
	return &Matrix{
		ModelName: m.embedder.ModelName(),
		Dimension: dim,
		CaseCount: len(cases),
		Device:    m.embedder.Device(),
		Rows:      rows,
	}, nil
}
