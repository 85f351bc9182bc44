package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/legalvault/internal/ai"
)

// WrapLruCacheToEmbedder caches single-text embeddings. Batch calls pass
// straight through since they are only made while computing the matrix.
func WrapLruCacheToEmbedder(e ai.Embedder, size int, ttl time.Duration) ai.Embedder {
	if e == nil || size <= 0 || ttl <= 0 {
		return e
	}
	return &lruEmbedder{
		Embedder: e,
		cache:    expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

type lruEmbedder struct {
	ai.Embedder
	cache *expirable.LRU[string, []float32]
}

func (l *lruEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	cacheKey := buildCacheKey(l.ModelName(), text)
	if cached, ok := l.cache.Get(cacheKey); ok {
		logutil.GetLogger(ctx).Debug("query embedding cache hit")
		return cloneEmbedding(cached), nil
	}
	res, err := l.Embedder.EmbedOne(ctx, text)
	if err != nil {
		return nil, err
	}
	l.cache.Add(cacheKey, cloneEmbedding(res))
	logutil.GetLogger(ctx).Debug("query embedding cached", zap.Int("cached", l.cache.Len()))
	return res, nil
}

func buildCacheKey(modelName, text string) string {
	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		modelName = "unknown"
	}
	hash := sha256.Sum256([]byte(text))
	return "embed:" + modelName + ":" + hex.EncodeToString(hash[:])
}

func cloneEmbedding(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	clone := make([]float32, len(values))
	copy(clone, values)
	return clone
}
