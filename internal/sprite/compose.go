package sprite

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"

	"github.com/srlehn/fbclock/internal/errors"
)

// MissError reports a rune without a cached sprite. It is not a correctness
// failure: the caller must fall back to direct rendering and treat the
// frame as degraded, not broken.
type MissError struct{ Rune rune }

func (e *MissError) Error() string {
	return fmt.Sprintf(`sprite cache miss for %q`, e.Rune)
}

// Compose concatenates cached sprites for text into one bitmap, aligning
// all glyphs on a shared baseline. brightness scales the baked sprite color
// uniformly; this is a scalar multiply, not a color-space transform.
// A cache miss for any rune returns a *MissError and no image.
func (c *Cache) Compose(text string, brightness float64) (*image.RGBA, error) {
	if c == nil {
		return nil, errors.NilReceiver()
	}
	if len(text) == 0 {
		return nil, errors.New(`empty string`)
	}
	var sprites []*Sprite
	for _, r := range text {
		sp := c.sprites[r]
		if sp == nil {
			return nil, errors.New(&MissError{Rune: r})
		}
		sprites = append(sprites, sp)
	}
	minOff := sprites[0].YOffset
	maxExtent := sprites[0].YOffset + sprites[0].Height
	totalW := 0
	for _, sp := range sprites {
		if sp.YOffset < minOff {
			minOff = sp.YOffset
		}
		if ext := sp.YOffset + sp.Height; ext > maxExtent {
			maxExtent = ext
		}
		totalW += sp.Width
	}
	out := image.NewRGBA(image.Rect(0, 0, totalW, maxExtent-minOff))
	x := 0
	for _, sp := range sprites {
		y := sp.YOffset - minOff
		draw.Draw(out, image.Rect(x, y, x+sp.Width, y+sp.Height),
			sp.Bitmap, sp.Bitmap.Bounds().Min, draw.Over)
		x += sp.Width
	}
	if brightness != 1.0 {
		ScaleBrightness(out, brightness)
	}
	return out, nil
}

// ScaleBrightness multiplies the color channels of img in place.
func ScaleBrightness(img *image.RGBA, factor float64) {
	if img == nil || factor == 1.0 {
		return
	}
	if factor < 0 {
		factor = 0
	} else if factor > 1 {
		factor = 1
	}
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(float64(img.Pix[i]) * factor)
		img.Pix[i+1] = uint8(float64(img.Pix[i+1]) * factor)
		img.Pix[i+2] = uint8(float64(img.Pix[i+2]) * factor)
	}
}

// Direct renders text without the cache. Strictly slower than Compose; the
// padding heuristics match the native renderer.
func Direct(fnt *truetype.Font, size float64, text string, col color.NRGBA) (*image.RGBA, error) {
	if fnt == nil {
		return nil, errors.NilParam(fnt)
	}
	const (
		padLR = 16
		padTB = 6
	)
	face := truetype.NewFace(fnt, &truetype.Options{Size: size})
	defer face.Close()
	meas := gg.NewContext(1, 1)
	meas.SetFontFace(face)
	w, h := meas.MeasureString(text)
	cw := int(math.Ceil(w)) + 2*padLR
	ch := int(math.Ceil(h*1.5)) + 2*padTB
	if cw < 1 || ch < 1 {
		return nil, errors.Errorf(`nothing to render for %q`, text)
	}
	dc := gg.NewContext(cw, ch)
	dc.SetFontFace(face)
	dc.SetColor(col)
	dc.DrawStringAnchored(text, float64(cw)/2, float64(ch)/2, 0.5, 0.5)
	img, ok := dc.Image().(*image.RGBA)
	if !ok {
		return nil, errors.New(`unexpected canvas image type`)
	}
	return img, nil
}
