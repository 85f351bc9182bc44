package similarity

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/xxxsen/legalvault/internal/ai"
	"github.com/xxxsen/legalvault/internal/compose"
	"github.com/xxxsen/legalvault/internal/embedcache"
	"github.com/xxxsen/legalvault/internal/model"
	"github.com/xxxsen/legalvault/internal/normalize"
	appErr "github.com/xxxsen/legalvault/internal/pkg/errors"
)

const DefaultTopK = 5

// Ranker answers nearest-neighbour queries against one immutable corpus
// snapshot and its embedding matrix.
type Ranker struct {
	embedder ai.Embedder
	cases    []*model.Case
	matrix   *embedcache.Matrix
}

func NewRanker(embedder ai.Embedder, cases []*model.Case, matrix *embedcache.Matrix) *Ranker {
	return &Ranker{embedder: embedder, cases: cases, matrix: matrix}
}

func (r *Ranker) ready() error {
	if r == nil || r.matrix == nil || len(r.matrix.Rows) == 0 {
		return appErr.ErrCacheUnavailable
	}
	if len(r.matrix.Rows) != len(r.cases) {
		return fmt.Errorf("%w: %d rows for %d cases", appErr.ErrCacheUnavailable, len(r.matrix.Rows), len(r.cases))
	}
	return nil
}

// Rank scores every case against vec and returns the k best, highest
// first. Equal scores keep corpus order. Cases whose id equals excludeID
// are skipped when excludeID is not empty.
func (r *Ranker) Rank(vec []float32, k int, excludeID string) ([]model.ScoredCase, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	if len(vec) != r.matrix.Dimension {
		return nil, fmt.Errorf("%w: query dimension %d, matrix dimension %d", appErr.ErrCacheUnavailable, len(vec), r.matrix.Dimension)
	}
	if k <= 0 {
		k = DefaultTopK
	}
	scored := make([]model.ScoredCase, 0, len(r.cases))
	for i, c := range r.cases {
		if excludeID != "" && c.ID() == excludeID {
			continue
		}
		scored = append(scored, model.ScoredCase{Case: c, Similarity: dot(vec, r.matrix.Rows[i])})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	if k < len(scored) {
		scored = scored[:k]
	}
	return scored, nil
}

// FindSimilarByText ranks the corpus against free text. No case is excluded.
func (r *Ranker) FindSimilarByText(ctx context.Context, text string, k int) ([]model.ScoredCase, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: query text is empty", appErr.ErrInvalidQuery)
	}
	if err := r.ready(); err != nil {
		return nil, err
	}
	vec, err := r.embedder.EmbedOne(ctx, normalize.Text(text))
	if err != nil {
		return nil, err
	}
	return r.Rank(vec, k, "")
}

// FindSimilarByCase ranks the corpus against the composed text of c and
// leaves c itself out of the result.
func (r *Ranker) FindSimilarByCase(ctx context.Context, c *model.Case, k int) ([]model.ScoredCase, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: case is nil", appErr.ErrInvalidQuery)
	}
	if c.ID() == "" {
		return nil, fmt.Errorf("%w: case has no id", appErr.ErrInvalidQuery)
	}
	if err := r.ready(); err != nil {
		return nil, err
	}
	vec, err := r.embedder.EmbedOne(ctx, compose.Text(c))
	if err != nil {
		return nil, err
	}
	return r.Rank(vec, k, c.ID())
}

// dot is clamped to [-1, 1]; float32 rounding can push unit vectors past it.
func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return math.Max(-1, math.Min(1, s))
}
