package job

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/legalvault/internal/corpus"
	"github.com/xxxsen/legalvault/internal/filestore"
	"github.com/xxxsen/legalvault/internal/model"
)

type IImporter interface {
	Import(ctx context.Context, cases []*model.Case) (*corpus.AppendResult, error)
}

// StoreImportJob imports every JSON batch found under prefix in the file
// store. Batches already imported by this process are skipped; a batch
// seen again after a restart is harmless since cases dedupe by id.
type StoreImportJob struct {
	store    filestore.Store
	importer IImporter
	prefix   string

	mu   sync.Mutex
	done map[string]struct{}
}

func NewStoreImportJob(store filestore.Store, importer IImporter, prefix string) *StoreImportJob {
	return &StoreImportJob{
		store:    store,
		importer: importer,
		prefix:   prefix,
		done:     make(map[string]struct{}),
	}
}

func (j *StoreImportJob) Name() string {
	return "store_import"
}

func (j *StoreImportJob) Run(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	keys, err := j.store.List(ctx, j.prefix)
	if err != nil {
		return fmt.Errorf("list import batches: %w", err)
	}
	for _, key := range keys {
		if !strings.HasSuffix(strings.ToLower(key), ".json") {
			continue
		}
		if _, ok := j.done[key]; ok {
			continue
		}
		res, err := ImportKey(ctx, j.store, j.importer, key)
		if err != nil {
			return err
		}
		j.done[key] = struct{}{}
		logutil.GetLogger(ctx).Info("import batch done", zap.String("key", key),
			zap.Int("added", res.Added), zap.Int("invalid", res.Invalid), zap.Int("total", res.Total))
	}
	return nil
}

// ImportKey reads one batch from the store and imports it.
func ImportKey(ctx context.Context, store filestore.Store, importer IImporter, key string) (*corpus.AppendResult, error) {
	raw, err := filestore.ReadAll(ctx, store, key)
	if err != nil {
		return nil, fmt.Errorf("read batch %s: %w", key, err)
	}
	cases, err := corpus.DecodeCases(raw)
	if err != nil {
		return nil, fmt.Errorf("batch %s: %w", key, err)
	}
	res, err := importer.Import(ctx, cases)
	if err != nil {
		return nil, fmt.Errorf("import batch %s: %w", key, err)
	}
	return res, nil
}
