package similarity

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/legalvault/internal/ai"
	"github.com/xxxsen/legalvault/internal/embedcache"
	"github.com/xxxsen/legalvault/internal/model"
	appErr "github.com/xxxsen/legalvault/internal/pkg/errors"
)

func newCases(ids ...string) []*model.Case {
	out := make([]*model.Case, 0, len(ids))
	for _, id := range ids {
		out = append(out, &model.Case{CaseID: model.Scalar(id)})
	}
	return out
}

func ids(items []model.ScoredCase) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Case.ID())
	}
	return out
}

func TestRank_OrdersByScoreThenCorpusOrder(t *testing.T) {
	cases := newCases("A", "B", "C", "D", "E")
	mat := &embedcache.Matrix{
		Dimension: 2,
		CaseCount: 5,
		Rows: [][]float32{
			{0.6, 0.8},
			{1, 0},
			{0, 1},
			{1, 0},
			{-1, 0},
		},
	}
	r := NewRanker(nil, cases, mat)

	got, err := r.Rank([]float32{1, 0}, 10, "")
	require.NoError(t, err)
	require.Equal(t, []string{"B", "D", "A", "C", "E"}, ids(got))
	require.InDelta(t, 1.0, got[0].Similarity, 1e-9)
	require.InDelta(t, 0.6, got[2].Similarity, 1e-6)
	require.InDelta(t, -1.0, got[4].Similarity, 1e-9)

	top, err := r.Rank([]float32{1, 0}, 2, "")
	require.NoError(t, err)
	require.Equal(t, []string{"B", "D"}, ids(top))

	def, err := r.Rank([]float32{1, 0}, 0, "")
	require.NoError(t, err)
	require.Len(t, def, DefaultTopK)
}

func TestRank_ScoresStayWithinUnitRange(t *testing.T) {
	cases := newCases("A", "B", "C")
	mat := &embedcache.Matrix{
		Dimension: 2,
		CaseCount: 3,
		Rows: [][]float32{
			{1.0000001, 0},
			{-1.0000001, 0},
			{0.6, 0.8},
		},
	}
	got, err := NewRanker(nil, cases, mat).Rank([]float32{1, 0}, 3, "")
	require.NoError(t, err)
	require.Equal(t, []string{"A", "C", "B"}, ids(got))
	require.Equal(t, 1.0, got[0].Similarity)
	require.Equal(t, -1.0, got[2].Similarity)

	norm := ai.Normalize([]float32{0.3, 0.7, 0.1, 0.9})
	self, err := NewRanker(nil, newCases("X"), &embedcache.Matrix{Dimension: 4, CaseCount: 1, Rows: [][]float32{norm}}).Rank(norm, 1, "")
	require.NoError(t, err)
	require.LessOrEqual(t, self[0].Similarity, 1.0)
	require.InDelta(t, 1.0, self[0].Similarity, 1e-6)
}

func TestRank_ExcludesID(t *testing.T) {
	cases := newCases("A", "B")
	mat := &embedcache.Matrix{Dimension: 2, CaseCount: 2, Rows: [][]float32{{1, 0}, {0, 1}}}
	got, err := NewRanker(nil, cases, mat).Rank([]float32{1, 0}, 5, "A")
	require.NoError(t, err)
	require.Equal(t, []string{"B"}, ids(got))
}

func TestRank_CacheUnavailable(t *testing.T) {
	_, err := NewRanker(nil, newCases("A"), nil).Rank([]float32{1}, 1, "")
	require.ErrorIs(t, err, appErr.ErrCacheUnavailable)

	misaligned := &embedcache.Matrix{Dimension: 1, CaseCount: 1, Rows: [][]float32{{1}}}
	_, err = NewRanker(nil, newCases("A", "B"), misaligned).Rank([]float32{1}, 1, "")
	require.ErrorIs(t, err, appErr.ErrCacheUnavailable)
}

func newLocalSetup(t *testing.T, cases []*model.Case) *Ranker {
	t.Helper()
	p, err := ai.NewProvider("local", map[string]interface{}{"dimension": 512, "workers": 1})
	require.NoError(t, err)
	b, err := ai.NewBackend(p, ai.BackendConfig{Model: "hash"})
	require.NoError(t, err)
	mgr := embedcache.NewManager(filepath.Join(t.TempDir(), "embeddings.msgpack"), b)
	mat, err := mgr.Ensure(context.Background(), cases)
	require.NoError(t, err)
	return NewRanker(b, cases, mat)
}

func TestFindSimilarByText_MurderScenario(t *testing.T) {
	cases := []*model.Case{
		{CaseID: model.Scalar("A"), Summary: model.Scalar("murder case IPC 302")},
		{CaseID: model.Scalar("B"), Summary: model.Scalar("murder case IPC 302")},
		{CaseID: model.Scalar("C"), Summary: model.Scalar("unrelated tax dispute")},
	}
	r := newLocalSetup(t, cases)

	got, err := r.FindSimilarByText(context.Background(), "murder under section 302", 3)
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B", "C"}, ids(got))
	require.Equal(t, got[0].Similarity, got[1].Similarity)
	require.Greater(t, got[1].Similarity, got[2].Similarity)
}

func TestFindSimilarByText_RejectsBlank(t *testing.T) {
	cases := newCases("A")
	mat := &embedcache.Matrix{Dimension: 1, CaseCount: 1, Rows: [][]float32{{1}}}
	r := NewRanker(nil, cases, mat)
	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := r.FindSimilarByText(context.Background(), q, 3)
		require.ErrorIs(t, err, appErr.ErrInvalidQuery)
	}
	require.Equal(t, [][]float32{{1}}, mat.Rows)
}

func TestFindSimilarByCase_NeverReturnsItself(t *testing.T) {
	cases := []*model.Case{
		{CaseID: model.Scalar("X"), Summary: model.Scalar("dowry death conviction upheld")},
		{CaseID: model.Scalar("Y"), Summary: model.Scalar("dowry death appeal")},
		{CaseID: model.Scalar("Z"), Summary: model.Scalar("land acquisition compensation")},
	}
	r := newLocalSetup(t, cases)

	got, err := r.FindSimilarByCase(context.Background(), cases[0], 10)
	require.NoError(t, err)
	require.Equal(t, []string{"Y", "Z"}, ids(got))

	self, err := r.Rank(r.matrix.Rows[0], 10, "")
	require.NoError(t, err)
	require.Equal(t, "X", self[0].Case.ID())
	require.InDelta(t, 1.0, self[0].Similarity, 1e-5)

	anonymous := &model.Case{Summary: model.Scalar("dowry death conviction upheld")}
	_, err = r.FindSimilarByCase(context.Background(), anonymous, 10)
	require.ErrorIs(t, err, appErr.ErrInvalidQuery)
}
