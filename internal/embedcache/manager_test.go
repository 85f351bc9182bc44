package embedcache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/legalvault/internal/model"
	appErr "github.com/xxxsen/legalvault/internal/pkg/errors"
)

type countingEmbedder struct {
	model string
	dim   int
	calls int
	texts int
	err   error
}

func (e *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	e.texts += len(texts)
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, e.Dimension())
		v[i%len(v)] = 1
		out[i] = v
	}
	return out, nil
}

func (e *countingEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	res, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return res[0], nil
}

func (e *countingEmbedder) ModelName() string { return e.model }
func (e *countingEmbedder) Device() string    { return "cpu" }

func (e *countingEmbedder) Dimension() int {
	if e.dim > 0 {
		return e.dim
	}
	return 3
}

func testCases(ids ...string) []*model.Case {
	out := make([]*model.Case, 0, len(ids))
	for _, id := range ids {
		out = append(out, &model.Case{
			CaseID:  model.Scalar(id),
			Summary: model.Scalar("summary of " + id),
		})
	}
	return out
}

func TestManagerEnsure_ComputesAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.msgpack")
	emb := &countingEmbedder{model: "m1"}
	mgr := NewManager(path, emb)
	require.Equal(t, StateUninitialized, mgr.State())

	mat, err := mgr.Ensure(context.Background(), testCases("A", "B", "C"))
	require.NoError(t, err)
	require.Equal(t, 3, mat.CaseCount)
	require.Equal(t, 3, mat.Dimension)
	require.Equal(t, "m1", mat.ModelName)
	require.Equal(t, "cpu", mat.Device)
	require.Len(t, mat.Rows, 3)
	require.Equal(t, StateValid, mgr.State())
	require.Equal(t, 1, emb.calls)

	_, err = os.Stat(path)
	require.NoError(t, err)

	again, err := mgr.Ensure(context.Background(), testCases("A", "B", "C"))
	require.NoError(t, err)
	require.Same(t, mat, again)
	require.Equal(t, 1, emb.calls)
}

func TestManagerEnsure_LoadsExistingCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.msgpack")
	first := &countingEmbedder{model: "m1"}
	_, err := NewManager(path, first).Ensure(context.Background(), testCases("A", "B"))
	require.NoError(t, err)

	second := &countingEmbedder{model: "m1"}
	mgr := NewManager(path, second)
	mat, err := mgr.Ensure(context.Background(), testCases("A", "B"))
	require.NoError(t, err)
	require.Equal(t, 0, second.calls)
	require.Equal(t, 2, mat.CaseCount)
	require.Equal(t, [][]float32{{1, 0, 0}, {0, 1, 0}}, mat.Rows)
}

func TestManagerEnsure_StaleCacheRecomputes(t *testing.T) {
	tests := []struct {
		name  string
		model string
		dim   int
		cases []*model.Case
	}{
		{name: "case count changed", model: "m1", dim: 3, cases: testCases("A", "B", "C")},
		{name: "model changed", model: "m2", dim: 3, cases: testCases("A", "B")},
		{name: "dimension changed", model: "m1", dim: 5, cases: testCases("A", "B")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "embeddings.msgpack")
			_, err := NewManager(path, &countingEmbedder{model: "m1"}).Ensure(context.Background(), testCases("A", "B"))
			require.NoError(t, err)

			emb := &countingEmbedder{model: tt.model, dim: tt.dim}
			mat, err := NewManager(path, emb).Ensure(context.Background(), tt.cases)
			require.NoError(t, err)
			require.Equal(t, 1, emb.calls)
			require.Equal(t, len(tt.cases), mat.CaseCount)
			require.Equal(t, tt.model, mat.ModelName)
			require.Equal(t, tt.dim, mat.Dimension)
			require.Len(t, mat.Rows[0], tt.dim)

			onDisk, err := readCacheFile(path)
			require.NoError(t, err)
			require.Equal(t, len(tt.cases), onDisk.CaseCount)
			require.Equal(t, tt.model, onDisk.ModelName)
			require.Equal(t, tt.dim, onDisk.Dimension)
		})
	}
}

func TestManagerEnsure_CorruptCacheRecomputes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.msgpack")
	require.NoError(t, os.WriteFile(path, []byte("not msgpack at all"), 0o644))

	emb := &countingEmbedder{model: "m1"}
	mat, err := NewManager(path, emb).Ensure(context.Background(), testCases("A"))
	require.NoError(t, err)
	require.Equal(t, 1, emb.calls)
	require.Equal(t, 1, mat.CaseCount)
}

func TestManagerEnsure_BackendFailureKeepsPreviousCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.msgpack")
	_, err := NewManager(path, &countingEmbedder{model: "m1"}).Ensure(context.Background(), testCases("A", "B"))
	require.NoError(t, err)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	emb := &countingEmbedder{model: "m1", err: appErr.ErrEmbeddingBackend}
	mgr := NewManager(path, emb)
	_, err = mgr.Ensure(context.Background(), testCases("A", "B", "C"))
	require.True(t, errors.Is(err, appErr.ErrEmbeddingBackend))
	require.NotEqual(t, StateValid, mgr.State())

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, before, after)

	_, err = mgr.Current()
	require.ErrorIs(t, err, appErr.ErrCacheUnavailable)
}

func TestManagerEnsure_FileDeletedBetweenCalls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.msgpack")
	_, err := NewManager(path, &countingEmbedder{model: "m1"}).Ensure(context.Background(), testCases("A", "B"))
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	emb := &countingEmbedder{model: "m1"}
	mat, err := NewManager(path, emb).Ensure(context.Background(), testCases("A", "B"))
	require.NoError(t, err)
	require.Equal(t, 1, emb.calls)
	onDisk, err := readCacheFile(path)
	require.NoError(t, err)
	require.Equal(t, mat.CaseCount, onDisk.CaseCount)
}

func TestManagerEnsure_FileDeletedUnderValidState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.msgpack")
	emb := &countingEmbedder{model: "m1"}
	mgr := NewManager(path, emb)
	_, err := mgr.Ensure(context.Background(), testCases("A", "B"))
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	mat, err := mgr.Ensure(context.Background(), testCases("A", "B"))
	require.NoError(t, err)
	require.Equal(t, 2, emb.calls)
	onDisk, err := readCacheFile(path)
	require.NoError(t, err)
	require.Equal(t, mat.CaseCount, onDisk.CaseCount)
}

func TestManagerInvalidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.msgpack")
	emb := &countingEmbedder{model: "m1"}
	mgr := NewManager(path, emb)
	_, err := mgr.Ensure(context.Background(), testCases("A", "B"))
	require.NoError(t, err)

	require.NoError(t, mgr.Invalidate(context.Background()))
	require.Equal(t, StateUninitialized, mgr.State())
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
	_, err = mgr.Current()
	require.ErrorIs(t, err, appErr.ErrCacheUnavailable)

	_, err = mgr.Ensure(context.Background(), testCases("A", "B"))
	require.NoError(t, err)
	require.Equal(t, 2, emb.calls)

	require.NoError(t, mgr.Invalidate(context.Background()))
	require.NoError(t, mgr.Invalidate(context.Background()))
}

func TestManagerEnsure_EmptyCorpus(t *testing.T) {
	emb := &countingEmbedder{model: "m1"}
	mgr := NewManager(filepath.Join(t.TempDir(), "embeddings.msgpack"), emb)
	_, err := mgr.Ensure(context.Background(), nil)
	require.ErrorIs(t, err, appErr.ErrCacheUnavailable)
	require.Equal(t, 0, emb.calls)
}

func TestLruEmbedder_ClonesCachedVectors(t *testing.T) {
	emb := &countingEmbedder{model: "m1"}
	wrapped := WrapLruCacheToEmbedder(emb, 8, time.Minute)

	first, err := wrapped.EmbedOne(context.Background(), "bail")
	require.NoError(t, err)
	first[0] = 42

	second, err := wrapped.EmbedOne(context.Background(), "bail")
	require.NoError(t, err)
	require.Equal(t, []float32{1, 0, 0}, second)
	require.Equal(t, 1, emb.calls)
	require.Equal(t, "m1", wrapped.ModelName())

	require.Same(t, emb, WrapLruCacheToEmbedder(emb, 0, time.Minute))
}
