package sprite_test

import (
	"image/color"
	"testing"

	"github.com/golang/freetype/truetype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/srlehn/fbclock/internal/errors"
	"github.com/srlehn/fbclock/internal/sprite"
)

var green = color.NRGBA{G: 0xff, A: 0xff}

func testFont(t *testing.T) *truetype.Font {
	t.Helper()
	fnt, err := truetype.Parse(goregular.TTF)
	require.NoError(t, err)
	return fnt
}

func testCache(t *testing.T, size float64, charset string) *sprite.Cache {
	t.Helper()
	c, err := sprite.NewCache(testFont(t), size, charset, green, nil)
	require.NoError(t, err)
	return c
}

func TestCacheBuild(t *testing.T) {
	c := testCache(t, 48, sprite.TimeCharset)
	for _, r := range `0123456789:APM` {
		sp := c.Lookup(r)
		require.NotNil(t, sp, `missing sprite for %q`, r)
		assert.Positive(t, sp.Width)
		assert.Positive(t, sp.Height)
		assert.Equal(t, sp.Width, sp.Bitmap.Bounds().Dx())
		assert.Equal(t, sp.Height, sp.Bitmap.Bounds().Dy())
	}
	assert.Equal(t, 48.0, c.Size())
	assert.Equal(t, green, c.Color())
}

func TestSpaceSpriteIsSynthetic(t *testing.T) {
	c := testCache(t, 48, sprite.TimeCharset)
	sp := c.Lookup(' ')
	require.NotNil(t, sp)
	assert.Equal(t, 12, sp.Width) // size/4
	for _, px := range sp.Bitmap.Pix {
		assert.Zero(t, px)
	}
}

func TestComposeBaselineHeight(t *testing.T) {
	c := testCache(t, 48, sprite.TimeCharset)
	text := `12:45 PM`
	img, err := c.Compose(text, 1.0)
	require.NoError(t, err)

	minOff, maxExtent := 1<<30, -(1 << 30)
	totalW := 0
	for _, r := range text {
		sp := c.Lookup(r)
		require.NotNil(t, sp)
		if sp.YOffset < minOff {
			minOff = sp.YOffset
		}
		if ext := sp.YOffset + sp.Height; ext > maxExtent {
			maxExtent = ext
		}
		totalW += sp.Width
	}
	assert.Equal(t, maxExtent-minOff, img.Bounds().Dy())
	assert.Equal(t, totalW, img.Bounds().Dx())
}

// Strings sharing a leading glyph must place that glyph's pixels at the
// row given by its own baseline offset, regardless of the other glyphs.
func TestComposeBaselineConsistency(t *testing.T) {
	c := testCache(t, 48, sprite.TimeCharset)
	zero := c.Lookup('0')
	require.NotNil(t, zero)
	for _, text := range []string{`0:`, `0P`, `09`} {
		minOff := 1 << 30
		for _, r := range text {
			sp := c.Lookup(r)
			require.NotNil(t, sp)
			if sp.YOffset < minOff {
				minOff = sp.YOffset
			}
		}
		img, err := c.Compose(text, 1.0)
		require.NoError(t, err)
		top := zero.YOffset - minOff
		for y := 0; y < zero.Height; y++ {
			for x := 0; x < zero.Width; x++ {
				want := zero.Bitmap.RGBAAt(x, y)
				got := img.RGBAAt(x, top+y)
				require.Equal(t, want, got,
					`pixel mismatch for %q at (%d,%d)`, text, x, y)
			}
		}
	}
}

func TestComposeMiss(t *testing.T) {
	c := testCache(t, 48, sprite.TimeCharset)
	img, err := c.Compose(`12@45`, 1.0)
	assert.Nil(t, img)
	require.Error(t, err)
	var miss *sprite.MissError
	require.True(t, errors.As(err, &miss))
	assert.Equal(t, '@', miss.Rune)
}

func TestComposeBrightness(t *testing.T) {
	c := testCache(t, 48, `8`)
	full, err := c.Compose(`8`, 1.0)
	require.NoError(t, err)
	dim, err := c.Compose(`8`, 0.3)
	require.NoError(t, err)
	require.Equal(t, full.Bounds(), dim.Bounds())
	var sawLit bool
	for i := 0; i < len(full.Pix); i += 4 {
		if full.Pix[i+1] == 0 {
			continue
		}
		sawLit = true
		assert.LessOrEqual(t, dim.Pix[i+1], full.Pix[i+1])
		assert.InDelta(t, float64(full.Pix[i+1])*0.3, float64(dim.Pix[i+1]), 1.0)
	}
	assert.True(t, sawLit)
}

func TestDirectFallback(t *testing.T) {
	img, err := sprite.Direct(testFont(t), 48, `Hello, World`, green)
	require.NoError(t, err)
	var lit int
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 {
			lit++
		}
	}
	assert.Positive(t, lit)
}

func TestNewCacheRejectsBadSize(t *testing.T) {
	_, err := sprite.NewCache(testFont(t), 0, sprite.TimeCharset, green, nil)
	assert.Error(t, err)
	_, err = sprite.NewCache(nil, 48, sprite.TimeCharset, green, nil)
	assert.Error(t, err)
}
