package fb

import (
	"os"
	"strconv"
	"strings"

	"github.com/srlehn/fbclock/internal/consts"
	"github.com/srlehn/fbclock/internal/errors"
	"github.com/srlehn/fbclock/internal/pixel"
)

// Geometry describes the framebuffer layout. It is read once at startup and
// assumed fixed for the process lifetime; there is no hot-resize handling.
type Geometry struct {
	Width  int
	Height int
	Format pixel.Format
}

func (g Geometry) BytesPerPixel() int { return g.Format.BytesPerPixel() }

// Stride is the byte length of one row. The geometry comes from the
// virtual size, so there is no extra per-row padding.
func (g Geometry) Stride() int { return g.Width * g.BytesPerPixel() }

func (g Geometry) BufferLen() int { return g.Height * g.Stride() }

// DevicePath returns $FRAMEBUFFER or the default device.
func DevicePath() string {
	if p, ok := os.LookupEnv(`FRAMEBUFFER`); ok && len(p) > 0 {
		return p
	}
	return consts.DefaultFBDevice
}

// ReadGeometry reads width, height and depth from the sysfs entries of fb0.
func ReadGeometry() (Geometry, error) {
	return readGeometryFiles(consts.SysfsVirtualSize, consts.SysfsBitsPerPixel)
}

func readGeometryFiles(sizePath, bppPath string) (Geometry, error) {
	sizeRaw, err := os.ReadFile(sizePath)
	if err != nil {
		return Geometry{}, errors.New(err)
	}
	w, h, err := ParseVirtualSize(string(sizeRaw))
	if err != nil {
		return Geometry{}, err
	}
	bppRaw, err := os.ReadFile(bppPath)
	if err != nil {
		return Geometry{}, errors.New(err)
	}
	bpp, err := strconv.Atoi(strings.TrimSpace(string(bppRaw)))
	if err != nil {
		return Geometry{}, errors.Errorf(`bad bits_per_pixel %q`, strings.TrimSpace(string(bppRaw)))
	}
	format, err := pixel.FormatForDepth(bpp)
	if err != nil {
		return Geometry{}, err
	}
	return Geometry{Width: w, Height: h, Format: format}, nil
}

// ParseVirtualSize parses the "width,height" form of
// /sys/class/graphics/fb0/virtual_size.
func ParseVirtualSize(s string) (w, h int, _ error) {
	parts := strings.Split(strings.TrimSpace(s), `,`)
	if len(parts) != 2 {
		return 0, 0, errors.Errorf(`bad virtual_size %q`, strings.TrimSpace(s))
	}
	w, errW := strconv.Atoi(strings.TrimSpace(parts[0]))
	h, errH := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, 0, errors.Errorf(`bad virtual_size %q`, strings.TrimSpace(s))
	}
	return w, h, nil
}
