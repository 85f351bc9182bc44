package main

import (
	"fmt"
	"time"

	"github.com/xxxsen/legalvault/internal/ai"
	"github.com/xxxsen/legalvault/internal/config"
	"github.com/xxxsen/legalvault/internal/corpus"
	"github.com/xxxsen/legalvault/internal/embedcache"
	"github.com/xxxsen/legalvault/internal/filestore"
	"github.com/xxxsen/legalvault/internal/service"
)

type app struct {
	similarity *service.SimilarityService
	store      filestore.Store
}

func newApp(cfg *config.Config) (*app, error) {
	provider, err := ai.NewProvider(cfg.Embedding.Provider, cfg.Embedding.Data)
	if err != nil {
		return nil, fmt.Errorf("init embedding provider: %w", err)
	}
	backend, err := ai.NewBackend(provider, ai.BackendConfig{
		Model:     cfg.Embedding.Model,
		BatchSize: cfg.Embedding.BatchSize,
		Device:    cfg.Embedding.Device,
		TaskType:  cfg.Embedding.TaskType,
	})
	if err != nil {
		return nil, fmt.Errorf("init embedding backend: %w", err)
	}
	queryEmbedder := embedcache.WrapLruCacheToEmbedder(
		backend,
		cfg.QueryCache.Size,
		time.Duration(cfg.QueryCache.TTLSeconds)*time.Second,
	)
	manager := embedcache.NewManager(cfg.CachePath, backend)
	out := &app{
		similarity: service.NewSimilarityService(corpus.NewStore(cfg.CorpusPath), manager, queryEmbedder),
	}
	if cfg.FileStore.Type != "" {
		store, err := filestore.New(cfg.FileStore.Type, cfg.FileStore.Data)
		if err != nil {
			return nil, fmt.Errorf("init file store: %w", err)
		}
		out.store = store
	}
	return out, nil
}
