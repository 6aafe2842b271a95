//go:build cgo
// +build cgo

package encoder

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/nagomi-art/nagomi/pkg/utils"
)

// CLIPEncoder runs the CLIP text and visual towers through ONNX Runtime.
// It requires CGO and the onnxruntime shared library.
type CLIPEncoder struct {
	dimensions int
	maxTokens  int
	cache      *TextCache

	textSession *ort.AdvancedSession
	textIDs     *ort.Tensor[int64]   // [1, maxTokens]
	textMask    *ort.Tensor[int64]   // [1, maxTokens]
	textOut     *ort.Tensor[float32] // [1, dimensions]

	visSession *ort.AdvancedSession
	visIn      *ort.Tensor[float32] // [1, 3, 224, 224]
	visOut     *ort.Tensor[float32] // [1, dimensions]

	mu sync.Mutex
}

// NewCLIPEncoder creates a CLIP encoder from text and visual ONNX models.
// InitializeEnvironment is called if not already done.
func NewCLIPEncoder(textModelPath, visualModelPath string, dimensions, maxTokens, cacheSize int) (*CLIPEncoder, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}

	e := &CLIPEncoder{
		dimensions: dimensions,
		maxTokens:  maxTokens,
		cache:      NewTextCache(cacheSize),
	}

	var err error
	e.textIDs, err = ort.NewTensor(ort.NewShape(1, int64(maxTokens)), make([]int64, maxTokens))
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	e.textMask, err = ort.NewTensor(ort.NewShape(1, int64(maxTokens)), make([]int64, maxTokens))
	if err != nil {
		e.destroyTensors()
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	e.textOut, err = ort.NewTensor(ort.NewShape(1, int64(dimensions)), make([]float32, dimensions))
	if err != nil {
		e.destroyTensors()
		return nil, fmt.Errorf("failed to create text output tensor: %w", err)
	}
	e.visIn, err = ort.NewTensor(ort.NewShape(1, 3, clipImageSize, clipImageSize), make([]float32, 3*clipImageSize*clipImageSize))
	if err != nil {
		e.destroyTensors()
		return nil, fmt.Errorf("failed to create pixel_values tensor: %w", err)
	}
	e.visOut, err = ort.NewTensor(ort.NewShape(1, int64(dimensions)), make([]float32, dimensions))
	if err != nil {
		e.destroyTensors()
		return nil, fmt.Errorf("failed to create visual output tensor: %w", err)
	}

	e.textSession, err = ort.NewAdvancedSession(
		textModelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"output"},
		[]ort.ArbitraryTensor{e.textIDs, e.textMask},
		[]ort.ArbitraryTensor{e.textOut},
		nil,
	)
	if err != nil {
		e.destroyTensors()
		return nil, fmt.Errorf("failed to create text session: %w", err)
	}
	e.visSession, err = ort.NewAdvancedSession(
		visualModelPath,
		[]string{"pixel_values"},
		[]string{"output"},
		[]ort.ArbitraryTensor{e.visIn},
		[]ort.ArbitraryTensor{e.visOut},
		nil,
	)
	if err != nil {
		_ = e.textSession.Destroy()
		e.destroyTensors()
		return nil, fmt.Errorf("failed to create visual session: %w", err)
	}
	return e, nil
}

// EncodeText returns the unit-length text embedding, using the cache when available.
func (e *CLIPEncoder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ids := Tokenize(text, e.maxTokens)
	mask := make([]int64, e.maxTokens)
	for i, id := range ids {
		if id != 0 {
			mask[i] = 1
		}
	}
	copy(e.textIDs.GetData(), ids)
	copy(e.textMask.GetData(), mask)

	if err := e.textSession.Run(); err != nil {
		return nil, fmt.Errorf("text inference failed: %w", err)
	}

	embedding := make([]float32, e.dimensions)
	copy(embedding, e.textOut.GetData()[:e.dimensions])
	utils.NormalizeL2(embedding)
	e.cache.Set(text, embedding)
	return embedding, nil
}

// EncodeImage decodes, preprocesses, and embeds the image at path, unit-normalized.
func (e *CLIPEncoder) EncodeImage(ctx context.Context, path string) ([]float32, error) {
	tensor, err := PreprocessImage(path)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	copy(e.visIn.GetData(), tensor)
	if err := e.visSession.Run(); err != nil {
		return nil, fmt.Errorf("visual inference failed: %w", err)
	}

	embedding := make([]float32, e.dimensions)
	copy(embedding, e.visOut.GetData()[:e.dimensions])
	utils.NormalizeL2(embedding)
	return embedding, nil
}

// Dimensions returns the embedding dimension.
func (e *CLIPEncoder) Dimensions() int {
	return e.dimensions
}

// Close destroys the sessions and tensors.
func (e *CLIPEncoder) Close() error {
	var err error
	if e.textSession != nil {
		err = e.textSession.Destroy()
		e.textSession = nil
	}
	if e.visSession != nil {
		if derr := e.visSession.Destroy(); err == nil {
			err = derr
		}
		e.visSession = nil
	}
	e.destroyTensors()
	return err
}

func (e *CLIPEncoder) destroyTensors() {
	if e.textIDs != nil {
		_ = e.textIDs.Destroy()
		e.textIDs = nil
	}
	if e.textMask != nil {
		_ = e.textMask.Destroy()
		e.textMask = nil
	}
	if e.textOut != nil {
		_ = e.textOut.Destroy()
		e.textOut = nil
	}
	if e.visIn != nil {
		_ = e.visIn.Destroy()
		e.visIn = nil
	}
	if e.visOut != nil {
		_ = e.visOut.Destroy()
		e.visOut = nil
	}
}
