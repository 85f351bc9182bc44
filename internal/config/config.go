package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	CorpusPath    string           `json:"corpus_path"`
	CachePath     string           `json:"cache_path"`
	Port          int              `json:"port"`
	LogConfig     logger.LogConfig `json:"log_config"`
	Embedding     EmbeddingConfig  `json:"embedding"`
	QueryCache    QueryCacheConfig `json:"query_cache"`
	Reload        ReloadConfig     `json:"reload"`
	FileStore     FileStoreConfig  `json:"file_store"`
	Import        ImportConfig     `json:"import"`
	CORSAllowlist []string         `json:"cors_allowlist"`
}

type EmbeddingConfig struct {
	Provider  string      `json:"provider"`
	Model     string      `json:"model"`
	BatchSize int         `json:"batch_size"`
	Device    string      `json:"device"`
	TaskType  string      `json:"task_type"`
	Data      interface{} `json:"data"`
}

type QueryCacheConfig struct {
	Size       int `json:"size"`
	TTLSeconds int `json:"ttl_seconds"`
}

type ReloadConfig struct {
	Spec         string `json:"spec"`
	ImportSpec   string `json:"import_spec"`
	ImportPrefix string `json:"import_prefix"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type ImportConfig struct {
	JWTSecret        string `json:"jwt_secret"`
	RateLimitSeconds int    `json:"rate_limit_seconds"`
	MaxUploadSize    int64  `json:"max_upload_size"`
	ArchivePrefix    string `json:"archive_prefix"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() error {
	if c.CorpusPath == "" {
		return fmt.Errorf("corpus_path is required")
	}
	if c.CachePath == "" {
		return fmt.Errorf("cache_path is required")
	}
	if c.Port == 0 {
		c.Port = 5000
	}
	if c.LogConfig.Level == "" {
		c.LogConfig.Level = "info"
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "local"
	}
	if c.Embedding.Model == "" {
		if c.Embedding.Provider != "local" {
			return fmt.Errorf("embedding.model is required for provider %s", c.Embedding.Provider)
		}
		c.Embedding.Model = "hash-v1"
	}
	if c.Embedding.BatchSize < 0 {
		return fmt.Errorf("embedding.batch_size must not be negative")
	}
	if c.Embedding.BatchSize == 0 {
		c.Embedding.BatchSize = 4
	}
	c.Embedding.Device = strings.ToLower(strings.TrimSpace(c.Embedding.Device))
	if c.Embedding.Device == "" {
		c.Embedding.Device = "auto"
	}
	if c.QueryCache.Size == 0 {
		c.QueryCache.Size = 1024
	}
	if c.QueryCache.TTLSeconds == 0 {
		c.QueryCache.TTLSeconds = 3600
	}
	if c.Import.MaxUploadSize == 0 {
		c.Import.MaxUploadSize = 32 * 1024 * 1024
	}
	if c.FileStore.Type != "" && c.FileStore.Data == nil {
		return fmt.Errorf("file_store.data is required for %s store", c.FileStore.Type)
	}
	if c.Reload.ImportSpec != "" && c.FileStore.Type == "" {
		return fmt.Errorf("reload.import_spec needs a file_store")
	}
	return nil
}
