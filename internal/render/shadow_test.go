package render_test

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srlehn/fbclock/internal/fb"
	"github.com/srlehn/fbclock/internal/pixel"
	"github.com/srlehn/fbclock/internal/render"
)

func testBuffer(t *testing.T, w, h int) *render.Buffer {
	t.Helper()
	b, err := render.NewBuffer(fb.Geometry{Width: w, Height: h, Format: pixel.RGB565})
	require.NoError(t, err)
	return b
}

func solidTile(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

var white = color.RGBA{0xff, 0xff, 0xff, 0xff}

func TestBlitContainment(t *testing.T) {
	tests := map[string]struct {
		x, y int
	}{
		"inside":       {10, 10},
		"left_edge":    {-5, 10},
		"top_edge":     {10, -5},
		"right_over":   {95, 10},
		"bottom_over":  {10, 95},
		"fully_out":    {200, 200},
		"negative_out": {-50, -50},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			b := testBuffer(t, 100, 100)
			r := b.Blit(solidTile(20, 20, white), tt.x, tt.y, `time`)
			assert.True(t, r.In(b.Bounds()) || r.Empty(),
				`rect %v escapes buffer bounds`, r)
			for _, d := range b.Dirty() {
				assert.True(t, d.In(b.Bounds()))
			}
		})
	}
}

func TestBlitWritesPixels(t *testing.T) {
	b := testBuffer(t, 16, 16)
	b.Blit(solidTile(2, 2, white), 3, 4, `time`)
	stride := 16 * 2
	// white in RGB565 is 0xffff little-endian
	off := 4*stride + 3*2
	assert.Equal(t, byte(0xff), b.Bytes()[off])
	assert.Equal(t, byte(0xff), b.Bytes()[off+1])
	// untouched neighbor stays black
	assert.Equal(t, byte(0x00), b.Bytes()[4*stride+5*2])
}

func TestBlitClearsPreviousRegion(t *testing.T) {
	b := testBuffer(t, 200, 200)
	b.Blit(solidTile(40, 10, white), 100, 100, `time`)
	b.ResetDirty()
	// shorter replacement further left; old tail must be cleared
	b.Blit(solidTile(10, 10, white), 20, 20, `time`)
	stride := 200 * 2
	off := 105*stride + 130*2
	assert.Equal(t, byte(0x00), b.Bytes()[off])
	assert.Equal(t, byte(0x00), b.Bytes()[off+1])
	// dirty list covers both the cleared area and the new rect
	require.Len(t, b.Dirty(), 2)
}

func TestBlitDistinctTagsDoNotClearEachOther(t *testing.T) {
	b := testBuffer(t, 300, 300)
	b.Blit(solidTile(10, 10, white), 10, 10, `time`)
	b.Blit(solidTile(10, 10, white), 200, 200, `date`)
	stride := 300 * 2
	// time pixels survive the date blit (clear pad is 50, far enough away)
	assert.Equal(t, byte(0xff), b.Bytes()[15*stride+15*2])
}

func TestClearZeroesAndMarksFullDirty(t *testing.T) {
	b := testBuffer(t, 32, 32)
	b.Blit(solidTile(8, 8, white), 4, 4, `time`)
	b.Clear()
	for _, px := range b.Bytes() {
		require.Zero(t, px)
	}
	require.Len(t, b.Dirty(), 1)
	assert.Equal(t, b.Bounds(), b.Dirty()[0])
	// previous rects are forgotten, the next blit clears nothing
	b.ResetDirty()
	b.Blit(solidTile(4, 4, white), 0, 0, `time`)
	assert.Len(t, b.Dirty(), 1)
}

func TestIdempotentRerender(t *testing.T) {
	render1 := func() []byte {
		b := testBuffer(t, 64, 64)
		b.Blit(solidTile(16, 8, white), 10, 10, `time`)
		b.Blit(solidTile(12, 6, white), 10, 30, `date`)
		out := make([]byte, len(b.Bytes()))
		copy(out, b.Bytes())
		return out
	}
	assert.Equal(t, render1(), render1())
}

func TestClearRegion(t *testing.T) {
	b := testBuffer(t, 64, 64)
	b.Blit(solidTile(8, 8, white), 20, 20, `weather`)
	b.ResetDirty()
	b.ClearRegion(`weather`)
	stride := 64 * 2
	assert.Equal(t, byte(0x00), b.Bytes()[24*stride+24*2])
	require.NotEmpty(t, b.Dirty())
}
