//go:build !cgo
// +build !cgo

package encoder

import (
	"context"
	"errors"
)

// CLIPEncoder stub type when built without CGO (see clip.go for the real implementation).
type CLIPEncoder struct{}

// NewCLIPEncoder returns an error when built without CGO (ONNX not available).
func NewCLIPEncoder(_, _ string, _, _, _ int) (*CLIPEncoder, error) {
	return nil, errors.New("CLIP encoder requires CGO; build with CGO_ENABLED=1 and onnxruntime")
}

func (e *CLIPEncoder) EncodeText(_ context.Context, _ string) ([]float32, error) {
	return nil, errors.New("CLIP encoder not available without CGO")
}

func (e *CLIPEncoder) EncodeImage(_ context.Context, _ string) ([]float32, error) {
	return nil, errors.New("CLIP encoder not available without CGO")
}

func (e *CLIPEncoder) Dimensions() int { return 0 }

func (e *CLIPEncoder) Close() error { return nil }
