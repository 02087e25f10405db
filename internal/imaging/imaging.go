package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// MaxAnalysisEdge bounds the longest edge before pixel statistics are computed.
// Larger photos are downscaled first so analysis cost stays flat.
const MaxAnalysisEdge = 1200

// Decode parses JPEG, PNG, GIF, WebP or BMP bytes into an image.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("imaging: decode: %w", err)
	}
	return img, format, nil
}

// EncodePNG renders the image as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("imaging: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Downscale resizes the image so its longest edge is at most maxEdge,
// preserving aspect ratio. Images already within bounds are returned as-is.
func Downscale(img image.Image, maxEdge int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	longest := w
	if h > longest {
		longest = h
	}
	if maxEdge <= 0 || longest <= maxEdge {
		return img
	}

	ratio := float64(maxEdge) / float64(longest)
	dw := int(float64(w) * ratio)
	dh := int(float64(h) * ratio)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// FlattenToRGB composites the image over a white background, discarding
// any alpha channel. Pixel statistics assume opaque photos.
func FlattenToRGB(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Over)
	return dst
}

// Prepare decodes, downscales and flattens an uploaded photo in one step.
func Prepare(data []byte, maxEdge int) (*image.RGBA, error) {
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return FlattenToRGB(Downscale(img, maxEdge)), nil
}
