package media

import (
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"io"
	"math"

	_ "image/gif"
	_ "image/png"

	"github.com/nfnt/resize"
)

const ContentType = "image/jpeg"

// Transform is the fixed processing applied at upload: scale to cover
// Width x Height, crop the centre, re-encode as progressive-friendly JPEG.
type Transform struct {
	Width   int
	Height  int
	Quality int
}

// Apply decodes r, fills the target box and writes JPEG to w.
func (t Transform) Apply(r io.Reader, w io.Writer) error {
	src, _, err := image.Decode(r)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return jpeg.Encode(w, t.fill(src), &jpeg.Options{Quality: t.quality()})
}

func (t Transform) quality() int {
	if t.Quality < 1 || t.Quality > 100 {
		return jpeg.DefaultQuality
	}
	return t.Quality
}

func (t Transform) fill(src image.Image) image.Image {
	b := src.Bounds()
	if t.Width <= 0 || t.Height <= 0 || b.Dx() == 0 || b.Dy() == 0 {
		return src
	}

	scale := math.Max(float64(t.Width)/float64(b.Dx()), float64(t.Height)/float64(b.Dy()))
	w := uint(math.Ceil(float64(b.Dx()) * scale))
	h := uint(math.Ceil(float64(b.Dy()) * scale))
	scaled := resize.Resize(w, h, src, resize.Lanczos3)

	sb := scaled.Bounds()
	offset := image.Pt(sb.Min.X+(sb.Dx()-t.Width)/2, sb.Min.Y+(sb.Dy()-t.Height)/2)
	dst := image.NewRGBA(image.Rect(0, 0, t.Width, t.Height))
	draw.Draw(dst, dst.Bounds(), scaled, offset, draw.Src)
	return dst
}
