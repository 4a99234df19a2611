// Package export writes a rendered frame to a PNG file, optionally
// upscaled with nearest-neighbour or Catmull-Rom interpolation.
package export

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	xdraw "golang.org/x/image/draw"

	"flashback"
)

// WritePNG scales src by factor (1 = no scaling) and writes it as a PNG
// to dir/name. factor <= 1 writes the frame unscaled; factor > 1 uses
// draw.NearestNeighbor to keep hard pixel edges, or draw.CatmullRom when
// smooth is set for a softened upscale suited to a preview thumbnail
// rather than a pixel-accurate capture.
func WritePNG(src *flashback.Framebuffer, dir, name string, factor int, smooth bool) (string, error) {
	if factor < 1 {
		factor = 1
	}
	img := src.AsImage()

	dst := img
	if factor != 1 {
		bounds := image.Rect(0, 0, src.Width*factor, src.Height*factor)
		scaled := image.NewRGBA(bounds)
		scaler := xdraw.NearestNeighbor
		if smooth {
			scaler = xdraw.CatmullRom
		}
		scaler.Scale(scaled, bounds, img, img.Bounds(), xdraw.Over, nil)
		dst = scaled
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, dst); err != nil {
		return "", fmt.Errorf("encode %s: %w", path, err)
	}
	return path, nil
}
