// Package encoder provides text and image embedding in a shared CLIP space.
package encoder

import "context"

// Encoder produces unit-length vector embeddings for text and images.
// Text and image embeddings live in the same space, so a text query can be
// compared against image vectors by dot product.
type Encoder interface {
	EncodeText(ctx context.Context, text string) ([]float32, error)
	EncodeImage(ctx context.Context, path string) ([]float32, error)
	Dimensions() int
	Close() error
}
