package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var ErrUnavailable = errors.New("ai provider unavailable")

const (
	DeviceAuto     = "auto"
	DeviceCPU      = "cpu"
	DeviceParallel = "parallel"
	DeviceRemote   = "remote"
)

type EmbedRequest struct {
	Model    string
	Texts    []string
	TaskType string
	Device   string
}

// IEmbedProvider turns a batch of texts into one raw vector per text, in
// input order.
type IEmbedProvider interface {
	Name() string
	Embed(ctx context.Context, req *EmbedRequest) ([][]float32, error)
}

// IDeviceSelector is implemented by providers that can run on more than one
// execution path. SelectDevice resolves a configured preference to the label
// of the path that will actually be used.
type IDeviceSelector interface {
	SelectDevice(preferred string) (string, error)
}

// Embedder is the contract the rest of the system depends on: unit-length
// vectors of a fixed dimension.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	ModelName() string
	Dimension() int
	Device() string
}

type ProviderFactory func(args interface{}) (IEmbedProvider, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]ProviderFactory{}
)

func Register(name string, factory ProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func NewProvider(name string, args interface{}) (IEmbedProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("embedding.provider is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported embedding provider: %s", name)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode embedding provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode embedding provider config: %w", err)
	}
	return nil
}
