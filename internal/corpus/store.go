package corpus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/legalvault/internal/model"
	appErr "github.com/xxxsen/legalvault/internal/pkg/errors"
	"github.com/xxxsen/legalvault/internal/pkg/fileutil"
)

type AppendResult struct {
	Received int `json:"received"`
	Invalid  int `json:"invalid"`
	Added    int `json:"added"`
	Total    int `json:"total"`
}

// Store reads and rewrites the corpus file. Writes are serialized and
// always replace the whole file atomically.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Load reads the whole corpus. Entries that are not JSON objects are
// skipped.
func (s *Store) Load(ctx context.Context) ([]*model.Case, error) {
	cases, _, err := s.read(ctx)
	return cases, err
}

// read decodes the corpus and also returns every entry as stored, including
// the ones that could not be decoded as a case.
func (s *Store) read(ctx context.Context) ([]*model.Case, []json.RawMessage, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", appErr.ErrCorpusUnavailable, err)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, nil, fmt.Errorf("%w: decode %s: %w", appErr.ErrCorpusUnavailable, s.path, err)
	}
	cases := make([]*model.Case, 0, len(items))
	for i, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			logutil.GetLogger(ctx).Warn("skip non-object corpus entry", zap.Int("index", i))
			continue
		}
		c := &model.Case{}
		if err := json.Unmarshal(item, c); err != nil {
			logutil.GetLogger(ctx).Warn("skip undecodable corpus entry", zap.Int("index", i), zap.Error(err))
			continue
		}
		cases = append(cases, c)
	}
	return cases, items, nil
}

// Append validates incoming, drops cases whose id is already known and
// rewrites the corpus with the survivors appended. Existing entries are
// written back untouched, including those Load skips.
func (s *Store) Append(ctx context.Context, incoming []*model.Case) (*AppendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	logger := logutil.GetLogger(ctx).With(zap.String("corpus", s.path))

	existing, entries, err := s.read(ctx)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		existing, entries = nil, nil
	}
	res := &AppendResult{Received: len(incoming)}
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, c := range existing {
		seen[c.ID()] = struct{}{}
	}
	added := make([]*model.Case, 0, len(incoming))
	for _, c := range incoming {
		if err := Validate(c); err != nil {
			res.Invalid++
			logger.Debug("skip invalid case", zap.String("case_id", c.ID()), zap.Error(err))
			continue
		}
		if _, ok := seen[c.ID()]; ok {
			continue
		}
		seen[c.ID()] = struct{}{}
		added = append(added, c)
	}
	res.Added = len(added)
	res.Total = len(existing) + len(added)
	if len(added) == 0 {
		return res, nil
	}
	all := make([]json.RawMessage, 0, len(entries)+len(added))
	all = append(all, entries...)
	for _, c := range added {
		item, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("encode case %s: %w", c.ID(), err)
		}
		all = append(all, item)
	}
	if err := s.write(all); err != nil {
		return nil, err
	}
	logger.Info("corpus updated", zap.Int("added", res.Added), zap.Int("total", res.Total),
		zap.Int("unreadable_kept", len(entries)-len(existing)))
	return res, nil
}

func (s *Store) write(entries []json.RawMessage) error {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("encode corpus: %w", err)
	}
	if err := fileutil.WriteFileAtomic(s.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write corpus: %w", err)
	}
	return nil
}

// Fingerprint changes whenever the corpus file is replaced. It is empty
// when the file does not exist.
func (s *Store) Fingerprint() string {
	st, err := os.Stat(s.path)
	if err != nil {
		return ""
	}
	return strconv.FormatInt(st.Size(), 10) + ":" + strconv.FormatInt(st.ModTime().UnixNano(), 10)
}

// DecodeCases parses a JSON array of cases as produced by the extraction
// pipeline.
func DecodeCases(raw []byte) ([]*model.Case, error) {
	var cases []*model.Case
	if err := json.Unmarshal(raw, &cases); err != nil {
		return nil, fmt.Errorf("%w: decode cases: %w", appErr.ErrInvalid, err)
	}
	out := cases[:0]
	for _, c := range cases {
		if c != nil {
			out = append(out, c)
		}
	}
	return out, nil
}
