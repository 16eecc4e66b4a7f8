package embedding

import (
	"context"
	"math"

	"github.com/hyperjump/sommelier/pkg/utils"
)

// MockEmbedder is a deterministic embedder for tests and offline runs. The vector is derived
// from a hash of model and text, so the same input always gets the same embedding.
type MockEmbedder struct {
	dimensions map[string]int
	fallback   int
}

// NewMockEmbedder returns an embedder producing unit vectors of the given dimensions for
// every model.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 8
	}
	return &MockEmbedder{dimensions: make(map[string]int), fallback: dimensions}
}

// WithModelDimensions sets a per-model dimension, so the two corpus columns can differ.
func (e *MockEmbedder) WithModelDimensions(model string, dimensions int) *MockEmbedder {
	e.dimensions[model] = dimensions
	return e
}

// Embed returns a deterministic embedding based on the text hash.
func (e *MockEmbedder) Embed(ctx context.Context, text, model string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dims := e.fallback
	if d, ok := e.dimensions[model]; ok {
		dims = d
	}
	h := HashString(model + "\x00" + text)
	emb := make([]float64, dims)
	for i := range emb {
		emb[i] = math.Sin(float64(h*(i+1)))*0.1 + 0.01
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// HashString returns a non-negative polynomial hash of s.
func HashString(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}
