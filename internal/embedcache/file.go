package embedcache

import (
	"fmt"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	appErr "github.com/xxxsen/legalvault/internal/pkg/errors"
	"github.com/xxxsen/legalvault/internal/pkg/fileutil"
)

const cacheFormatVersion = 1

// Matrix is one embedding row per case, in corpus order.
type Matrix struct {
	ModelName string      `msgpack:"model_name"`
	Dimension int         `msgpack:"embedding_dim"`
	CaseCount int         `msgpack:"num_cases"`
	Device    string      `msgpack:"device"`
	Rows      [][]float32 `msgpack:"embeddings"`
}

type cacheFile struct {
	Version int `msgpack:"version"`
	Matrix  `msgpack:",inline"`
}

func readCacheFile(path string) (*Matrix, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f cacheFile
	if err := msgpack.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", appErr.ErrCacheCorrupt, err)
	}
	if f.Version != cacheFormatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", appErr.ErrCacheCorrupt, f.Version)
	}
	m := &f.Matrix
	if m.CaseCount != len(m.Rows) || m.Dimension <= 0 {
		return nil, fmt.Errorf("%w: header does not match %d rows", appErr.ErrCacheCorrupt, len(m.Rows))
	}
	for i, row := range m.Rows {
		if len(row) != m.Dimension {
			return nil, fmt.Errorf("%w: row %d has dimension %d, want %d", appErr.ErrCacheCorrupt, i, len(row), m.Dimension)
		}
	}
	return m, nil
}

func writeCacheFile(path string, m *Matrix) error {
	raw, err := msgpack.Marshal(&cacheFile{Version: cacheFormatVersion, Matrix: *m})
	if err != nil {
		return fmt.Errorf("encode embedding cache: %w", err)
	}
	return fileutil.WriteFileAtomic(path, raw, 0o644)
}
