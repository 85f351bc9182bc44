package ai

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"regexp"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
)

const (
	defaultLocalDimension = 768
	localBigramWeight     = 0.5
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

type localConfig struct {
	Dimension int `json:"dimension"`
	Workers   int `json:"workers"`
}

// localProvider maps text to a signed feature-hashing vector over words
// and word bigrams. It needs no network access and is fully deterministic.
type localProvider struct {
	dim     int
	workers int
}

func init() {
	Register("local", newLocalProvider)
}

func newLocalProvider(args interface{}) (IEmbedProvider, error) {
	cfg := &localConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.Dimension < 0 || cfg.Workers < 0 {
		return nil, fmt.Errorf("invalid local provider config")
	}
	if cfg.Dimension == 0 {
		cfg.Dimension = defaultLocalDimension
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &localProvider{dim: cfg.Dimension, workers: cfg.Workers}, nil
}

func (p *localProvider) Name() string {
	return "local"
}

func (p *localProvider) Dimension() int {
	return p.dim
}

func (p *localProvider) SelectDevice(preferred string) (string, error) {
	switch preferred {
	case "", DeviceAuto:
		if p.workers > 1 {
			return DeviceParallel, nil
		}
		return DeviceCPU, nil
	case DeviceCPU:
		return DeviceCPU, nil
	case DeviceParallel:
		return DeviceParallel, nil
	default:
		return "", fmt.Errorf("local provider does not support device %q", preferred)
	}
}

func (p *localProvider) Embed(ctx context.Context, req *EmbedRequest) ([][]float32, error) {
	out := make([][]float32, len(req.Texts))
	if req.Device != DeviceParallel || p.workers <= 1 || len(req.Texts) <= 1 {
		for i, text := range req.Texts {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			out[i] = p.vector(text)
		}
		return out, nil
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(p.workers)
	for i, text := range req.Texts {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = p.vector(text)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *localProvider) vector(text string) []float32 {
	vec := make([]float32, p.dim)
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	for i, tok := range tokens {
		p.add(vec, "w:"+tok, 1)
		if i > 0 {
			p.add(vec, "b:"+tokens[i-1]+" "+tok, localBigramWeight)
		}
	}
	return vec
}

func (p *localProvider) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := sum % uint64(p.dim)
	var sign float32 = 1
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], sum)
	if buf[7]&0x80 != 0 {
		sign = -1
	}
	vec[idx] += sign * weight
}
