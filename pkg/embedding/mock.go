package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"math/rand/v2"
)

// MockProvider derives a unit-length pseudo-random vector from the SHA-256 of
// the text. The same text yields the same vector in every process.
type MockProvider struct {
	dimension int
}

// NewMockProvider returns a MockProvider producing vectors of the given dimension.
func NewMockProvider(dimension int) *MockProvider {
	return &MockProvider{dimension: dimension}
}

// Embed implements Provider.
func (p *MockProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.vector(text), nil
}

// EmbedBatch implements Provider.
func (p *MockProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = p.vector(text)
	}
	return out, nil
}

// Dimension implements Provider.
func (p *MockProvider) Dimension() int { return p.dimension }

// Name implements Provider.
func (p *MockProvider) Name() string { return "mock" }

func (p *MockProvider) vector(text string) []float32 {
	sum := sha256.Sum256([]byte(text))
	rng := rand.New(rand.NewPCG(binary.BigEndian.Uint64(sum[0:8]), binary.BigEndian.Uint64(sum[8:16])))

	values := make([]float64, p.dimension)
	var norm float64
	for i := range values {
		v := rng.Float64()*2 - 1
		values[i] = v
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, p.dimension)
	for i, v := range values {
		if norm > 0 {
			v /= norm
		}
		out[i] = float32(v)
	}
	return out
}
