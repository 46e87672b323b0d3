package hash

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func TestProvider_Deterministic(t *testing.T) {
	p := New(64)
	a, err := p.Embed(context.Background(), "I feel calm and relaxed")
	require.NoError(t, err)
	b, err := p.Embed(context.Background(), "i FEEL calm, and relaxed!")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestProvider_SharedWordsAreCloser(t *testing.T) {
	p := New(0)
	ctx := context.Background()
	q, _ := p.Embed(ctx, "so stressed about the deadline")
	near, _ := p.Embed(ctx, "stressed about work deadline")
	far, _ := p.Embed(ctx, "sunny beach holiday")
	assert.Greater(t, cosine(q, near), cosine(q, far))
}

func TestProvider_EmptyText(t *testing.T) {
	v, err := New(8).Embed(context.Background(), "  ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 8), v)
}
