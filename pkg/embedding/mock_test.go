package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestMockProvider_Deterministic(t *testing.T) {
	p := NewMockProvider(1536)
	ctx := context.Background()

	a, err := p.Embed(ctx, "What is ML?")
	require.NoError(t, err)
	b, err := p.Embed(ctx, "What is ML?")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 1536)
	assert.InDelta(t, 1.0, norm(a), 1e-5)

	fresh := NewMockProvider(1536)
	c, err := fresh.Embed(ctx, "What is ML?")
	require.NoError(t, err)
	assert.Equal(t, a, c, "vectors must not depend on provider instance")
}

func TestMockProvider_DifferentTextsDiffer(t *testing.T) {
	p := NewMockProvider(64)
	a, _ := p.Embed(context.Background(), "alpha")
	b, _ := p.Embed(context.Background(), "beta")
	assert.NotEqual(t, a, b)
}

func TestMockProvider_UnitNormForManyInputs(t *testing.T) {
	p := NewMockProvider(128)
	inputs := []string{"", " ", "x", "ünïcödé", "a much longer piece of text with several words"}

	vectors, err := p.EmbedBatch(context.Background(), inputs)
	require.NoError(t, err)
	require.Len(t, vectors, len(inputs))

	for i, v := range vectors {
		assert.InDelta(t, 1.0, norm(v), 1e-5, "input %q", inputs[i])
		single, _ := p.Embed(context.Background(), inputs[i])
		assert.Equal(t, single, v, "batch and single must agree")
	}
}

func TestMockProvider_RespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMockProvider(8).Embed(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}
