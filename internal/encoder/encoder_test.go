package encoder

import (
	"context"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/nagomi-art/nagomi/pkg/utils"
)

func TestMockEncoderDeterministic(t *testing.T) {
	enc := NewMockEncoder(64)
	ctx := context.Background()

	a, err := enc.EncodeText(ctx, "calm blue seascape")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := enc.EncodeText(ctx, "calm blue seascape")
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("same text produced different embeddings")
		}
	}
	c, _ := enc.EncodeText(ctx, "stormy red abstraction")
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different texts produced identical embeddings")
	}
}

func TestMockEncoderUnitNorm(t *testing.T) {
	enc := NewMockEncoder(128)
	emb, err := enc.EncodeImage(context.Background(), "some/picture.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if len(emb) != 128 {
		t.Fatalf("len = %d, want 128", len(emb))
	}
	if norm := utils.L2Norm(emb); math.Abs(norm-1.0) > 1e-5 {
		t.Errorf("norm = %f, want 1.0", norm)
	}
}

func TestTextCacheLRU(t *testing.T) {
	cache := NewTextCache(2)
	cache.Set("a", []float32{1})
	cache.Set("b", []float32{2})
	if _, ok := cache.Get("a"); !ok {
		t.Fatal("a should be cached")
	}
	// "b" is now the oldest; adding "c" evicts it.
	cache.Set("c", []float32{3})
	if _, ok := cache.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := cache.Get("a"); !ok {
		t.Error("a should still be cached")
	}
	if _, ok := cache.Get("c"); !ok {
		t.Error("c should be cached")
	}
}

func TestTokenize(t *testing.T) {
	ids := Tokenize("serene misty mountains", 77)
	if len(ids) != 77 {
		t.Fatalf("len = %d, want 77", len(ids))
	}
	if ids[0] != clipSOT {
		t.Errorf("ids[0] = %d, want SOT %d", ids[0], clipSOT)
	}
	if ids[4] != clipEOT {
		t.Errorf("ids[4] = %d, want EOT %d", ids[4], clipEOT)
	}
	again := Tokenize("serene misty mountains", 77)
	for i := range ids {
		if ids[i] != again[i] {
			t.Fatal("tokenization not deterministic")
		}
	}
}

func TestTokenizeTruncates(t *testing.T) {
	long := ""
	for i := 0; i < 200; i++ {
		long += "word "
	}
	ids := Tokenize(long, 77)
	if len(ids) != 77 {
		t.Fatalf("len = %d, want 77", len(ids))
	}
}

func TestPreprocessImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "img.png")
	writeTestPNG(t, path, 64, 48)

	tensor, err := PreprocessImage(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(tensor) != 3*clipImageSize*clipImageSize {
		t.Fatalf("tensor len = %d, want %d", len(tensor), 3*clipImageSize*clipImageSize)
	}
}

func TestPreprocessImageBadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.jpg")
	if err := os.WriteFile(path, []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := PreprocessImage(path); err == nil {
		t.Error("expected decode error for non-image file")
	}
	if _, err := PreprocessImage(filepath.Join(dir, "missing.jpg")); err == nil {
		t.Error("expected error for missing file")
	}
}

func writeTestPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := img.PixOffset(x, y)
			img.Pix[i] = uint8(x * 4)
			img.Pix[i+1] = uint8(y * 4)
			img.Pix[i+2] = 128
			img.Pix[i+3] = 255
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}
