package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestLocal(t *testing.T, workers int) *localProvider {
	t.Helper()
	p, err := NewProvider("local", map[string]interface{}{"dimension": 64, "workers": workers})
	require.NoError(t, err)
	return p.(*localProvider)
}

func TestLocalProvider_Deterministic(t *testing.T) {
	p := newTestLocal(t, 1)
	req := &EmbedRequest{Texts: []string{"murder case 302", "murder case 302"}, Device: DeviceCPU}
	first, err := p.Embed(context.Background(), req)
	require.NoError(t, err)
	second, err := p.Embed(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, first[0], first[1])
	require.Len(t, first[0], 64)
}

func TestLocalProvider_ParallelMatchesSerial(t *testing.T) {
	p := newTestLocal(t, 4)
	texts := []string{"bail application", "dowry death", "land acquisition compensation", "cheque bounce", "writ petition"}
	serial, err := p.Embed(context.Background(), &EmbedRequest{Texts: texts, Device: DeviceCPU})
	require.NoError(t, err)
	parallel, err := p.Embed(context.Background(), &EmbedRequest{Texts: texts, Device: DeviceParallel})
	require.NoError(t, err)
	require.Equal(t, serial, parallel)
}

func TestLocalProvider_SelectDevice(t *testing.T) {
	single := newTestLocal(t, 1)
	dev, err := single.SelectDevice(DeviceAuto)
	require.NoError(t, err)
	require.Equal(t, DeviceCPU, dev)

	multi := newTestLocal(t, 4)
	dev, err = multi.SelectDevice("")
	require.NoError(t, err)
	require.Equal(t, DeviceParallel, dev)

	_, err = multi.SelectDevice("cuda")
	require.Error(t, err)
}

func TestLocalProvider_SharedWordsScoreHigher(t *testing.T) {
	p := newTestLocal(t, 1)
	b, err := NewBackend(p, BackendConfig{Model: "hash", Device: DeviceCPU})
	require.NoError(t, err)
	vectors, err := b.Embed(context.Background(), []string{
		"murder conviction under section 302",
		"murder conviction appeal under section 302",
		"tax assessment of a company",
	})
	require.NoError(t, err)
	require.Greater(t, dot(vectors[0], vectors[1]), dot(vectors[0], vectors[2]))
	require.Equal(t, 64, b.Dimension())
}

func TestNewProvider_Unknown(t *testing.T) {
	_, err := NewProvider("nope", nil)
	require.Error(t, err)
	_, err = NewProvider("", nil)
	require.Error(t, err)
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}
