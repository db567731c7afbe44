// Package pixel converts RGB888 source pixels into the wire formats of
// common Linux framebuffers. The RGB565 conversion is a plain truncation,
// no dithering; banding at low brightness is accepted.
package pixel

import (
	"github.com/srlehn/fbclock/internal/consts"
	"github.com/srlehn/fbclock/internal/errors"
)

type Format int

const (
	RGB565 Format = iota // 16 bpp, little-endian uint16 per pixel
	BGR24                // 24 bpp
	BGRA32               // 32 bpp, alpha byte ignored by the device
)

func (f Format) String() string {
	switch f {
	case RGB565:
		return `RGB565`
	case BGR24:
		return `BGR24`
	case BGRA32:
		return `BGRA32`
	}
	return `unknown`
}

func (f Format) BytesPerPixel() int {
	switch f {
	case RGB565:
		return 2
	case BGR24:
		return 3
	case BGRA32:
		return 4
	}
	return 0
}

// FormatForDepth maps a framebuffer bit depth to a pixel format.
func FormatForDepth(bitsPerPixel int) (Format, error) {
	switch bitsPerPixel {
	case 16:
		return RGB565, nil
	case 24:
		return BGR24, nil
	case 32:
		return BGRA32, nil
	}
	return 0, errors.Errorf(`%v: %d bpp`, consts.ErrUnknownPixFormat, bitsPerPixel)
}

// PackRGB565 truncates an RGB888 triple to RRRRRGGGGGGBBBBB.
func PackRGB565(r, g, b uint8) uint16 {
	r5 := uint16(r) >> 3
	g6 := uint16(g) >> 2
	b5 := uint16(b) >> 3
	return r5<<11 | g6<<5 | b5
}

// UnpackRGB565 expands a packed pixel back to RGB888 by shifting the
// truncated components into the high bits. Values never exceed the input
// of PackRGB565.
func UnpackRGB565(p uint16) (r, g, b uint8) {
	r = uint8(p>>11) << 3
	g = uint8(p>>5&0x3f) << 2
	b = uint8(p&0x1f) << 3
	return r, g, b
}

// Put writes one pixel in the given format to dst, which must hold at
// least BytesPerPixel bytes. Multi-byte formats are little-endian, matching
// the fb layout on the supported targets.
func Put(dst []byte, f Format, r, g, b uint8) {
	switch f {
	case RGB565:
		p := PackRGB565(r, g, b)
		dst[0] = byte(p)
		dst[1] = byte(p >> 8)
	case BGR24:
		dst[0] = b
		dst[1] = g
		dst[2] = r
	case BGRA32:
		dst[0] = b
		dst[1] = g
		dst[2] = r
		dst[3] = 0xff
	}
}

// Get reads one pixel back; the inverse of Put up to truncation.
func Get(src []byte, f Format) (r, g, b uint8) {
	switch f {
	case RGB565:
		return UnpackRGB565(uint16(src[0]) | uint16(src[1])<<8)
	case BGR24, BGRA32:
		return src[2], src[1], src[0]
	}
	return 0, 0, 0
}
