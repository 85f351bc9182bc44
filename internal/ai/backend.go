package ai

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/xxxsen/legalvault/internal/pkg/errors"
)

const defaultBatchSize = 4

type BackendConfig struct {
	Model     string
	BatchSize int
	Device    string
	TaskType  string
}

// Backend wraps a provider with the calling contract the cache depends on:
// fixed batch size, L2-normalized output and a dimension that never changes
// once observed.
type Backend struct {
	provider  IEmbedProvider
	model     string
	batchSize int
	taskType  string
	device    string

	mu  sync.Mutex
	dim int
}

func NewBackend(p IEmbedProvider, cfg BackendConfig) (*Backend, error) {
	if p == nil {
		return nil, fmt.Errorf("embedding provider is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, fmt.Errorf("embedding model is required")
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	device, err := selectDevice(p, cfg.Device)
	if err != nil {
		return nil, err
	}
	b := &Backend{
		provider:  p,
		model:     model,
		batchSize: batchSize,
		taskType:  cfg.TaskType,
		device:    device,
	}
	if d, ok := p.(interface{ Dimension() int }); ok {
		b.dim = d.Dimension()
	}
	return b, nil
}

func selectDevice(p IEmbedProvider, preferred string) (string, error) {
	preferred = strings.ToLower(strings.TrimSpace(preferred))
	if sel, ok := p.(IDeviceSelector); ok {
		return sel.SelectDevice(preferred)
	}
	switch preferred {
	case "", DeviceAuto, DeviceRemote:
		return DeviceRemote, nil
	default:
		return "", fmt.Errorf("provider %s does not support device %q", p.Name(), preferred)
	}
}

// ModelName identifies the vectors this backend produces. Cached matrices
// are only reused when it matches.
func (b *Backend) ModelName() string {
	return b.provider.Name() + "/" + b.model
}

func (b *Backend) Device() string {
	return b.device
}

func (b *Backend) Dimension() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dim
}

func (b *Backend) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("model", b.ModelName()), zap.String("device", b.device))
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += b.batchSize {
		end := start + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := b.provider.Embed(ctx, &EmbedRequest{
			Model:    b.model,
			Texts:    texts[start:end],
			TaskType: b.taskType,
			Device:   b.device,
		})
		if err != nil {
			logger.Error("embed batch failed", zap.Int("start", start), zap.Int("end", end), zap.Error(err))
			return nil, fmt.Errorf("%w: batch [%d,%d): %w", appErr.ErrEmbeddingBackend, start, end, err)
		}
		if len(vectors) != end-start {
			return nil, fmt.Errorf("%w: batch [%d,%d): got %d vectors", appErr.ErrEmbeddingBackend, start, end, len(vectors))
		}
		for _, v := range vectors {
			if err := b.checkDimension(len(v)); err != nil {
				return nil, err
			}
			out = append(out, Normalize(v))
		}
		logger.Debug("embed batch done", zap.Int("start", start), zap.Int("end", end), zap.Int("total", len(texts)))
	}
	return out, nil
}

func (b *Backend) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := b.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (b *Backend) checkDimension(n int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n == 0 {
		return fmt.Errorf("%w: empty vector returned", appErr.ErrEmbeddingBackend)
	}
	if b.dim == 0 {
		b.dim = n
		return nil
	}
	if b.dim != n {
		return fmt.Errorf("%w: dimension changed from %d to %d", appErr.ErrEmbeddingBackend, b.dim, n)
	}
	return nil
}

// Normalize returns an L2-normalized copy of v. Zero vectors stay zero.
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return out
	}
	norm := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
