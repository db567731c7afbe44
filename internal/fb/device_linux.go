//go:build linux && !android

package fb

import (
	"image"
	"io"
	"log/slog"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/srlehn/fbclock/internal/consts"
	"github.com/srlehn/fbclock/internal/errors"
	"github.com/srlehn/fbclock/internal/logx"
	"github.com/srlehn/fbclock/internal/pixel"
)

const fbioGetVScreenInfo = 0x4600

// Device wraps an open framebuffer device. When the memory map succeeds,
// flushes copy row slices straight into the mapping; otherwise each row is
// written with a seek+write pair, markedly slower under load.
type Device struct {
	path string
	file *os.File
	mem  []byte
	geo  Geometry
	lp   logx.LoggerProvider
}

// Open opens the device and attempts to memory-map it. A failed mmap is not
// an error; the device degrades to the file write path.
func Open(path string, geo Geometry, lp logx.LoggerProvider) (*Device, error) {
	f, err := os.OpenFile(path, os.O_RDWR, os.ModeDevice)
	if err != nil {
		return nil, errors.New(err)
	}
	d := &Device{path: path, file: f, geo: geo, lp: lp}
	mem, err := unix.Mmap(int(f.Fd()), 0, geo.BufferLen(),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		logx.Warn(`framebuffer mmap failed, using file writes`, lp,
			`device`, path, `error`, err)
	} else {
		d.mem = mem
	}
	logx.Info(`framebuffer device opened`, lp,
		`device`, path,
		`geometry`, geo,
		`mapped`, d.Mapped(),
	)
	return d, nil
}

func (d *Device) Mapped() bool { return d != nil && d.mem != nil }

func (d *Device) Geometry() Geometry { return d.geo }

// Flush writes the given dirty rectangles of the shadow buffer to the
// device. An empty rectangle list writes the entire buffer (first frame or
// forced full redraw).
func (d *Device) Flush(shadow []byte, rects []image.Rectangle) error {
	if d == nil || d.file == nil {
		return errors.New(consts.ErrDeviceClosed)
	}
	if len(shadow) < d.geo.BufferLen() {
		return errors.Errorf(`shadow buffer too small: %d < %d`, len(shadow), d.geo.BufferLen())
	}
	if len(rects) == 0 {
		return d.writeAll(shadow)
	}
	for _, r := range rects {
		if err := d.writeRect(shadow, r); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) writeAll(shadow []byte) error {
	if d.mem != nil {
		copy(d.mem, shadow[:d.geo.BufferLen()])
		return nil
	}
	if _, err := d.file.WriteAt(shadow[:d.geo.BufferLen()], 0); err != nil {
		return errors.New(err)
	}
	return nil
}

func (d *Device) writeRect(shadow []byte, r image.Rectangle) error {
	r = r.Intersect(image.Rect(0, 0, d.geo.Width, d.geo.Height))
	if r.Empty() {
		return nil
	}
	stride := d.geo.Stride()
	bpp := d.geo.BytesPerPixel()
	rowLen := r.Dx() * bpp
	for y := r.Min.Y; y < r.Max.Y; y++ {
		off := y*stride + r.Min.X*bpp
		row := shadow[off : off+rowLen]
		if d.mem != nil {
			copy(d.mem[off:off+rowLen], row)
			continue
		}
		if _, err := d.file.WriteAt(row, int64(off)); err != nil {
			return errors.New(err)
		}
	}
	return nil
}

func (d *Device) Close() error {
	if d == nil || d.file == nil {
		return nil
	}
	var errMunmap error
	if d.mem != nil {
		errMunmap = unix.Munmap(d.mem)
		d.mem = nil
	}
	errClose := d.file.Close()
	d.file = nil
	return errors.Join(errMunmap, errClose)
}

var _ io.Closer = (*Device)(nil)

// varScreenInfoRaw receives the full struct fb_var_screeninfo; a too-small
// struct would let the kernel write past the end. Only the leading fields
// are parsed.
type varScreenInfoRaw [160]byte

func (v *varScreenInfoRaw) xres() uint32 { return *(*uint32)(unsafe.Pointer(&v[0])) }
func (v *varScreenInfoRaw) yres() uint32 { return *(*uint32)(unsafe.Pointer(&v[4])) }
func (v *varScreenInfoRaw) bpp() uint32  { return *(*uint32)(unsafe.Pointer(&v[24])) }

// QueryGeometry asks the device driver directly via FBIOGET_VSCREENINFO.
// Fallback for systems where the sysfs entries are missing.
func QueryGeometry(path string) (Geometry, error) {
	f, err := os.OpenFile(path, os.O_RDWR, os.ModeDevice)
	if err != nil {
		return Geometry{}, errors.New(err)
	}
	defer f.Close()
	var raw varScreenInfoRaw
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), fbioGetVScreenInfo,
		uintptr(unsafe.Pointer(&raw)))
	if errno != 0 {
		return Geometry{}, errors.Errorf(`FBIOGET_VSCREENINFO on %s: %v`, path, errno)
	}
	format, err := pixel.FormatForDepth(int(raw.bpp()))
	if err != nil {
		return Geometry{}, err
	}
	return Geometry{
		Width:  int(raw.xres()),
		Height: int(raw.yres()),
		Format: format,
	}, nil
}

// Geom resolves the framebuffer geometry, preferring sysfs over the ioctl.
func Geom(path string, lp logx.LoggerProvider) (Geometry, error) {
	geo, err := ReadGeometry()
	if err == nil {
		return geo, nil
	}
	logx.IsErr(err, lp, slog.LevelWarn, `source`, `sysfs`)
	return QueryGeometry(path)
}
