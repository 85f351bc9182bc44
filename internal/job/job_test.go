package job

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/legalvault/internal/corpus"
	"github.com/xxxsen/legalvault/internal/filestore"
	"github.com/xxxsen/legalvault/internal/model"
)

type fakeReloader struct {
	changed bool
	err     error
	calls   int
}

func (f *fakeReloader) Reload(ctx context.Context) (bool, error) {
	f.calls++
	return f.changed, f.err
}

type fakeImporter struct {
	batches [][]string
}

func (f *fakeImporter) Import(ctx context.Context, cases []*model.Case) (*corpus.AppendResult, error) {
	ids := make([]string, 0, len(cases))
	for _, c := range cases {
		ids = append(ids, c.ID())
	}
	f.batches = append(f.batches, ids)
	return &corpus.AppendResult{Received: len(cases), Added: len(cases), Total: len(cases)}, nil
}

func TestCorpusReloadJob(t *testing.T) {
	r := &fakeReloader{changed: true}
	j := NewCorpusReloadJob(r)
	require.Equal(t, "corpus_reload", j.Name())
	require.NoError(t, j.Run(context.Background()))

	r.err = errors.New("boom")
	require.Error(t, j.Run(context.Background()))
	require.Equal(t, 2, r.calls)
}

func TestStoreImportJob_ImportsEachBatchOnce(t *testing.T) {
	ctx := context.Background()
	store, err := filestore.New("local", map[string]interface{}{"dir": t.TempDir()})
	require.NoError(t, err)
	put := func(key, body string) {
		require.NoError(t, store.Save(ctx, key, bytes.NewReader([]byte(body)), int64(len(body))))
	}
	put("inbox/a.json", `[{"case_id":"A"},{"case_id":"B"}]`)
	put("inbox/notes.txt", `ignored`)
	put("elsewhere/c.json", `[{"case_id":"C"}]`)

	imp := &fakeImporter{}
	j := NewStoreImportJob(store, imp, "inbox/")
	require.NoError(t, j.Run(ctx))
	require.Equal(t, [][]string{{"A", "B"}}, imp.batches)

	put("inbox/b.json", `[{"case_id":"D"}]`)
	require.NoError(t, j.Run(ctx))
	require.Equal(t, [][]string{{"A", "B"}, {"D"}}, imp.batches)

	put("inbox/bad.json", `{"case_id":"E"}`)
	require.Error(t, j.Run(ctx))
}
