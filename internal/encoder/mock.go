package encoder

import (
	"context"
	"math"

	"github.com/nagomi-art/nagomi/pkg/utils"
)

// MockEncoder is a deterministic encoder for tests. It derives a fixed-dimension
// unit vector from a hash of the input, so the same text or path always gets the
// same embedding.
type MockEncoder struct {
	dimensions int
}

// NewMockEncoder returns an encoder producing deterministic embeddings of the given dimensions.
func NewMockEncoder(dimensions int) *MockEncoder {
	if dimensions <= 0 {
		dimensions = 512
	}
	return &MockEncoder{dimensions: dimensions}
}

// EncodeText returns a deterministic embedding based on the text hash.
func (e *MockEncoder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	return e.embed(text), nil
}

// EncodeImage returns a deterministic embedding based on the path hash.
// The file is not read; tests can index paths that do not exist.
func (e *MockEncoder) EncodeImage(ctx context.Context, path string) ([]float32, error) {
	return e.embed(path), nil
}

func (e *MockEncoder) embed(s string) []float32 {
	h := hashString(s)
	emb := make([]float32, e.dimensions)
	for i := 0; i < e.dimensions; i++ {
		emb[i] = float32(math.Sin(float64(h*(i+1)))*0.1 + 0.01)
	}
	utils.NormalizeL2(emb)
	return emb
}

// Dimensions returns the embedding dimension.
func (e *MockEncoder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEncoder.
func (e *MockEncoder) Close() error {
	return nil
}

func hashString(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}
