package filestore

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalStore_SaveOpenList(t *testing.T) {
	dir := t.TempDir()
	store, err := New("local", map[string]interface{}{"dir": dir})
	require.NoError(t, err)
	require.Equal(t, "local", store.Type())

	ctx := context.Background()
	payload := []byte(`[{"case_id":"A"}]`)
	require.NoError(t, store.Save(ctx, "batches/2023/delhi.json", bytes.NewReader(payload), int64(len(payload))))
	require.NoError(t, store.Save(ctx, "batches/2023/madras.json", bytes.NewReader(payload), -1))
	require.NoError(t, store.Save(ctx, "other.json", bytes.NewReader(payload), -1))

	raw, err := ReadAll(ctx, store, "batches/2023/delhi.json")
	require.NoError(t, err)
	require.Equal(t, payload, raw)

	keys, err := store.List(ctx, "batches/")
	require.NoError(t, err)
	require.Equal(t, []string{"batches/2023/delhi.json", "batches/2023/madras.json"}, keys)
}

func TestLocalStore_RejectsEscapingKeys(t *testing.T) {
	store, err := New("local", map[string]interface{}{"dir": t.TempDir()})
	require.NoError(t, err)
	_, err = store.Open(context.Background(), "../etc/passwd")
	require.Error(t, err)
	require.Error(t, store.Save(context.Background(), "", bytes.NewReader(nil), 0))
}

func TestNew_UnknownType(t *testing.T) {
	_, err := New("ftp", nil)
	require.Error(t, err)
	_, err = New("local", nil)
	require.Error(t, err)
}
