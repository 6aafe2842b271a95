// Package generate provides text generation for recipes and explanations.
package generate

import (
	"context"
	"errors"
)

// ErrGeneration reports a failed text-generation call. Generation failures are
// fatal to the current request and are never retried here.
var ErrGeneration = errors.New("generate: generation service failed")

// Generator turns a prompt into generated text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
