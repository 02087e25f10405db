package bgremove

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
)

// Remover strips the background from an encoded image and returns PNG
// bytes with an alpha channel.
type Remover interface {
	Remove(ctx context.Context, photo []byte) ([]byte, error)
}

// ErrUnavailable is returned when no remover is configured or every
// configured remover failed.
var ErrUnavailable = fmt.Errorf("bgremove: no remover available")

// Chain tries each remover in order and returns the first result.
type Chain struct {
	removers []Remover
}

// NewChain builds a fallback chain. Nil removers are skipped.
func NewChain(removers ...Remover) *Chain {
	chain := &Chain{}
	for _, remover := range removers {
		if remover != nil {
			chain.removers = append(chain.removers, remover)
		}
	}
	return chain
}

// Available reports whether any remover is configured.
func (c *Chain) Available() bool {
	return c != nil && len(c.removers) > 0
}

func (c *Chain) Remove(ctx context.Context, photo []byte) ([]byte, error) {
	if !c.Available() {
		return nil, ErrUnavailable
	}

	var lastErr error
	for _, remover := range c.removers {
		result, err := remover.Remove(ctx, photo)
		if err == nil && len(result) > 0 {
			return PostProcess(result)
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	if lastErr == nil {
		lastErr = ErrUnavailable
	}
	return nil, lastErr
}

// RemoveOrOriginal returns the processed image, or the original bytes
// when every remover fails. The bool reports whether removal happened.
func (c *Chain) RemoveOrOriginal(ctx context.Context, photo []byte) ([]byte, bool) {
	result, err := c.Remove(ctx, photo)
	if err != nil || len(result) == 0 {
		return photo, false
	}
	return result, true
}

const (
	// Alpha below this becomes fully transparent.
	alphaFloor = 50
	// Alpha above this becomes fully opaque.
	alphaCeiling = 200
)

// PostProcess cleans up the alpha channel of a cutout: faint halo pixels
// are dropped and nearly opaque pixels are solidified.
func PostProcess(cutout []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(cutout))
	if err != nil {
		// Not PNG output; pass it through untouched.
		return cutout, nil
	}

	bounds := img.Bounds()
	rgba, ok := img.(*image.NRGBA)
	if !ok {
		converted := image.NewNRGBA(bounds)
		draw.Draw(converted, bounds, img, bounds.Min, draw.Src)
		rgba = converted
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := rgba.Pix[(y-bounds.Min.Y)*rgba.Stride:]
		for x := 0; x < bounds.Dx(); x++ {
			alphaIdx := x*4 + 3
			switch alpha := row[alphaIdx]; {
			case alpha < alphaFloor:
				row[x*4] = 0
				row[x*4+1] = 0
				row[x*4+2] = 0
				row[alphaIdx] = 0
			case alpha > alphaCeiling:
				row[alphaIdx] = 255
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, rgba); err != nil {
		return nil, fmt.Errorf("bgremove: encode cutout: %w", err)
	}
	return buf.Bytes(), nil
}
