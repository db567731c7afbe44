// Package sprite pre-rasterizes glyphs into cropped bitmap tiles and
// composites display strings from them. Rasterizing a 280 pt glyph costs
// tens of milliseconds on a Pi Zero; a cache lookup costs nothing.
package sprite

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/srlehn/fbclock/internal/errors"
	"github.com/srlehn/fbclock/internal/logx"
)

// Character sets needed by the clock faces.
const (
	TimeCharset = `0123456789: APM`
	DateCharset = `ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789 ,.-:/°%|+[]`
)

// cropPad is the fixed padding kept around a glyph's occupied bounding box.
const cropPad = 2

// Sprite is an immutable bitmap tile for one glyph. YOffset is the vertical
// distance of the bitmap's top edge from the rendering baseline (negative
// above it), so mixed-height glyphs can later share a baseline.
type Sprite struct {
	Bitmap  *image.RGBA
	Width   int
	Height  int
	YOffset int
}

// Cache maps runes to sprites for one (font, size, color) combination.
// Read-only after construction.
type Cache struct {
	sprites map[rune]*Sprite
	font    *truetype.Font
	size    float64
	color   color.NRGBA
}

// NewCache rasterizes every rune of charset. Glyphs that produce no visible
// pixels are skipped and logged; later lookups for them miss, which routes
// the caller onto the slow direct-rendering path.
func NewCache(fnt *truetype.Font, size float64, charset string, col color.NRGBA, lp logx.LoggerProvider) (*Cache, error) {
	if fnt == nil {
		return nil, errors.NilParam(fnt)
	}
	if size <= 0 {
		return nil, errors.Errorf(`font size must be positive, got %v`, size)
	}
	c := &Cache{
		sprites: make(map[rune]*Sprite, len(charset)),
		font:    fnt,
		size:    size,
		color:   col,
	}
	face := truetype.NewFace(fnt, &truetype.Options{Size: size})
	defer face.Close()
	for _, r := range charset {
		if _, ok := c.sprites[r]; ok {
			continue
		}
		if r == ' ' {
			// no rendering needed, synthetic blank tile
			w := int(math.Round(size / 4))
			if w < 1 {
				w = 1
			}
			c.sprites[r] = &Sprite{
				Bitmap: image.NewRGBA(image.Rect(0, 0, w, 1)),
				Width:  w,
				Height: 1,
			}
			continue
		}
		sp := rasterizeGlyph(face, size, r, col)
		if sp == nil {
			logx.Warn(`glyph produced no visible pixels, skipping`, lp,
				`rune`, string(r), `size`, size)
			continue
		}
		c.sprites[r] = sp
	}
	logx.Debug(`sprite cache built`, lp, `glyphs`, len(c.sprites), `size`, size)
	return c, nil
}

// rasterizeGlyph draws one rune on an oversized scratch canvas, locates the
// occupied bounding box and crops it with fixed padding. Returns nil if no
// pixel was lit.
func rasterizeGlyph(face font.Face, size float64, r rune, col color.NRGBA) *Sprite {
	canvas := int(math.Ceil(size * 3))
	if canvas < 8 {
		canvas = 8
	}
	baseX := float64(canvas) / 3
	baseY := math.Round(float64(canvas) * 2 / 3)
	dc := gg.NewContext(canvas, canvas)
	dc.SetFontFace(face)
	dc.SetColor(col)
	dc.DrawString(string(r), baseX, baseY)
	img, ok := dc.Image().(*image.RGBA)
	if !ok {
		return nil
	}
	bbox, ok := occupiedBounds(img)
	if !ok {
		return nil
	}
	bbox = bbox.Inset(-cropPad).Intersect(img.Bounds())
	crop := image.NewRGBA(image.Rect(0, 0, bbox.Dx(), bbox.Dy()))
	draw.Draw(crop, crop.Bounds(), img, bbox.Min, draw.Src)
	return &Sprite{
		Bitmap:  crop,
		Width:   bbox.Dx(),
		Height:  bbox.Dy(),
		YOffset: bbox.Min.Y - int(baseY),
	}
}

// occupiedBounds returns the tight bounding box of all pixels with nonzero
// alpha.
func occupiedBounds(img *image.RGBA) (image.Rectangle, bool) {
	b := img.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X-1, b.Min.Y-1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for x := 0; x < b.Dx(); x++ {
			if row[x*4+3] == 0 {
				continue
			}
			if px := b.Min.X + x; px < minX {
				minX = px
			}
			if px := b.Min.X + x; px > maxX {
				maxX = px
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < minX || maxY < minY {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

// Lookup returns the sprite for r, or nil on a cache miss.
func (c *Cache) Lookup(r rune) *Sprite {
	if c == nil {
		return nil
	}
	return c.sprites[r]
}

// Size returns the point size the cache was rasterized at. A font-size
// change (burn-in variation) requires a full rebuild; sprites are never
// scaled in place.
func (c *Cache) Size() float64 { return c.size }

// Color returns the color baked into the cached sprites.
func (c *Cache) Color() color.NRGBA { return c.color }

// Len reports the number of cached glyphs.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.sprites)
}
