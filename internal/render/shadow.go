// Package render keeps an in-memory mirror of the framebuffer contents and
// tracks which regions changed since the last flush, so the device writer
// can touch only dirty rows.
package render

import (
	"image"

	"github.com/srlehn/fbclock/internal/errors"
	"github.com/srlehn/fbclock/internal/fb"
	"github.com/srlehn/fbclock/internal/pixel"
)

// ClearPad is the margin added around a region's previous rectangle before
// clearing it, so a now-shorter string leaves no residual pixels. A fixed
// approximation, not an exact invalidation.
const ClearPad = 50

// Buffer is the shadow pixel buffer in the device's native format. It is
// allocated once, sized to the framebuffer geometry, and mutated only by
// the render loop.
type Buffer struct {
	geo   fb.Geometry
	pix   []byte
	dirty []image.Rectangle
	prev  map[string]image.Rectangle
}

func NewBuffer(geo fb.Geometry) (*Buffer, error) {
	if geo.Width <= 0 || geo.Height <= 0 {
		return nil, errors.Errorf(`bad geometry %dx%d`, geo.Width, geo.Height)
	}
	return &Buffer{
		geo:  geo,
		pix:  make([]byte, geo.BufferLen()),
		prev: make(map[string]image.Rectangle),
	}, nil
}

func (b *Buffer) Bytes() []byte { return b.pix }

func (b *Buffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.geo.Width, b.geo.Height)
}

// Dirty returns the rectangles changed since the last ResetDirty.
func (b *Buffer) Dirty() []image.Rectangle { return b.dirty }

// ResetDirty is called by the writer after a successful flush.
func (b *Buffer) ResetDirty() { b.dirty = b.dirty[:0] }

// Blit converts img to the device pixel format and writes it at (x, y),
// clamped to the buffer bounds. The region's previous rectangle is cleared
// first (padded by ClearPad); the new rectangle is recorded as dirty and as
// the tag's previous rectangle. Independently positioned elements use
// distinct tags so updating one never forces a full-screen clear.
func (b *Buffer) Blit(img *image.RGBA, x, y int, tag string) image.Rectangle {
	if b == nil || img == nil {
		return image.Rectangle{}
	}
	if prev, ok := b.prev[tag]; ok {
		b.clearRect(pad(prev, ClearPad))
	}
	dst := image.Rect(x, y, x+img.Bounds().Dx(), y+img.Bounds().Dy()).
		Intersect(b.Bounds())
	if dst.Empty() {
		delete(b.prev, tag)
		return image.Rectangle{}
	}
	bpp := b.geo.BytesPerPixel()
	stride := b.geo.Stride()
	srcMin := img.Bounds().Min
	for dy := dst.Min.Y; dy < dst.Max.Y; dy++ {
		sy := srcMin.Y + (dy - y)
		rowOff := dy * stride
		for dx := dst.Min.X; dx < dst.Max.X; dx++ {
			sx := srcMin.X + (dx - x)
			i := img.PixOffset(sx, sy)
			// premultiplied RGB is already the color over black
			pixel.Put(b.pix[rowOff+dx*bpp:], b.geo.Format,
				img.Pix[i], img.Pix[i+1], img.Pix[i+2])
		}
	}
	b.dirty = append(b.dirty, dst)
	b.prev[tag] = dst
	return dst
}

// ClearRegion erases a region's previous rectangle, for elements that
// disappear entirely (e.g. the weather line after the service is disabled).
func (b *Buffer) ClearRegion(tag string) {
	if b == nil {
		return
	}
	if prev, ok := b.prev[tag]; ok {
		b.clearRect(pad(prev, ClearPad))
		delete(b.prev, tag)
	}
}

// Clear zeroes the whole buffer and marks it fully dirty. Used when the
// pixel-shift offset changes (all regions moved together) and on
// screensaver entry.
func (b *Buffer) Clear() {
	if b == nil {
		return
	}
	for i := range b.pix {
		b.pix[i] = 0
	}
	b.dirty = append(b.dirty[:0], b.Bounds())
	clear(b.prev)
}

func (b *Buffer) clearRect(r image.Rectangle) {
	r = r.Intersect(b.Bounds())
	if r.Empty() {
		return
	}
	bpp := b.geo.BytesPerPixel()
	stride := b.geo.Stride()
	rowLen := r.Dx() * bpp
	for y := r.Min.Y; y < r.Max.Y; y++ {
		off := y*stride + r.Min.X*bpp
		row := b.pix[off : off+rowLen]
		for i := range row {
			row[i] = 0
		}
	}
	b.dirty = append(b.dirty, r)
}

func pad(r image.Rectangle, margin int) image.Rectangle {
	return image.Rect(r.Min.X-margin, r.Min.Y-margin, r.Max.X+margin, r.Max.Y+margin)
}
