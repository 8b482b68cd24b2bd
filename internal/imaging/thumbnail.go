// Package imaging derives JPEG previews from uploaded images.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"

	"github.com/EgorLis/event-gallery/internal/domain"
)

const (
	DefaultMaxWidth  = 800
	DefaultMaxHeight = 800
	DefaultQuality   = 85
	DefaultMaxPixels = 50_000_000
)

type Options struct {
	MaxWidth  int
	MaxHeight int
	Quality   int
	// MaxPixels caps width*height of the source; larger images are rejected
	// before any pixel buffer is allocated.
	MaxPixels int
}

func DefaultOptions() Options {
	return Options{
		MaxWidth:  DefaultMaxWidth,
		MaxHeight: DefaultMaxHeight,
		Quality:   DefaultQuality,
		MaxPixels: DefaultMaxPixels,
	}
}

func (o Options) normalized() Options {
	if o.MaxWidth <= 0 {
		o.MaxWidth = DefaultMaxWidth
	}
	if o.MaxHeight <= 0 {
		o.MaxHeight = DefaultMaxHeight
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = DefaultQuality
	}
	if o.MaxPixels <= 0 {
		o.MaxPixels = DefaultMaxPixels
	}
	return o
}

// Thumbnail decodes src and returns a JPEG whose longest side fits the box.
// Aspect ratio is kept and smaller images are not upscaled.
func Thumbnail(src []byte, opts Options) ([]byte, error) {
	opts = opts.normalized()

	hdr, _, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	if hdr.Width <= 0 || hdr.Height <= 0 || int64(hdr.Width)*int64(hdr.Height) > int64(opts.MaxPixels) {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", domain.ErrDecode, hdr.Width, hdr.Height, opts.MaxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	if format == "jpeg" {
		img = applyOrientation(src, img)
	}

	flat := flatten(img, color.White)
	thumb := resize.Thumbnail(uint(opts.MaxWidth), uint(opts.MaxHeight), flat, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: opts.Quality}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// flatten composites img over an opaque background; JPEG has no alpha.
func flatten(img image.Image, bg color.Color) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}
