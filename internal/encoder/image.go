package encoder

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"
)

const clipImageSize = 224

// CLIP normalization constants (mean/std per RGB channel).
var (
	clipMean = [3]float32{0.48145466, 0.4578275, 0.40821073}
	clipStd  = [3]float32{0.26862954, 0.26130258, 0.27577711}
)

// PreprocessImage decodes the image at path and returns CLIP visual-tower input:
// a CHW float32 tensor of shape [3, 224, 224], resized so the short side is 224,
// center-cropped, and normalized with the CLIP mean/std.
func PreprocessImage(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	return imageToTensor(src), nil
}

func imageToTensor(src image.Image) []float32 {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	// Scale so the short side is exactly clipImageSize.
	var newW, newH int
	if w < h {
		newW = clipImageSize
		newH = h * clipImageSize / w
	} else {
		newH = clipImageSize
		newW = w * clipImageSize / h
	}
	if newW < clipImageSize {
		newW = clipImageSize
	}
	if newH < clipImageSize {
		newH = clipImageSize
	}
	scaled := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, bounds, draw.Over, nil)

	offX := (newW - clipImageSize) / 2
	offY := (newH - clipImageSize) / 2

	out := make([]float32, 3*clipImageSize*clipImageSize)
	plane := clipImageSize * clipImageSize
	for y := 0; y < clipImageSize; y++ {
		for x := 0; x < clipImageSize; x++ {
			i := scaled.PixOffset(x+offX, y+offY)
			r := float32(scaled.Pix[i]) / 255
			g := float32(scaled.Pix[i+1]) / 255
			b := float32(scaled.Pix[i+2]) / 255
			p := y*clipImageSize + x
			out[p] = (r - clipMean[0]) / clipStd[0]
			out[plane+p] = (g - clipMean[1]) / clipStd[1]
			out[2*plane+p] = (b - clipMean[2]) / clipStd[2]
		}
	}
	return out
}
