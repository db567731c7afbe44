//go:build linux && !android

// Package input reads evdev pointer and touch devices and reduces them to
// the single gesture the clock understands: a press-release tap at
// framebuffer pixel coordinates.
package input

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"sort"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/srlehn/fbclock/internal/errors"
	"github.com/srlehn/fbclock/internal/logx"
)

// Tap is a completed press-release cycle.
type Tap struct {
	X int
	Y int
}

const (
	evKey = 0x01
	evRel = 0x02
	evAbs = 0x03

	relX = 0x00
	relY = 0x01

	absX           = 0x00
	absY           = 0x01
	absMTPositionX = 0x35
	absMTPositionY = 0x36

	btnLeft  = 0x110
	btnTouch = 0x14a
)

type inputEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

var eventSize = int(unsafe.Sizeof(inputEvent{}))

type absInfo struct {
	Value, Minimum, Maximum, Fuzz, Flat, Resolution int32
}

// Device is one open evdev node. The raw fd is kept on purpose: reads go
// through unix.Read so O_NONBLOCK stays effective, an *os.File would park
// the goroutine in the runtime poller instead of returning EAGAIN.
type Device struct {
	fd   int
	path string

	screenW, screenH int
	// absolute axis ranges; zero max means coordinates are taken as pixels
	xRange, yRange absInfo

	x, y int32
	down bool
}

// Pointer polls a set of evdev devices without blocking the render loop.
type Pointer struct {
	devices []*Device
	lp      logx.LoggerProvider
}

// Open opens every readable /dev/input/event* node. Having none is not an
// error; the clock simply runs without touch support.
func Open(screenW, screenH int, lp logx.LoggerProvider) *Pointer {
	paths, _ := filepath.Glob(`/dev/input/event*`)
	sort.Strings(paths)
	p := &Pointer{lp: lp}
	for _, path := range paths {
		d, err := openDevice(path, screenW, screenH)
		if err != nil {
			logx.Debug(`input device skipped`, lp, `path`, path, `error`, err)
			continue
		}
		p.devices = append(p.devices, d)
		logx.Info(`input device opened`, lp, `path`, path)
	}
	return p
}

func openDevice(path string, screenW, screenH int) (*Device, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, errors.New(err)
	}
	d := &Device{
		fd:      fd,
		path:    path,
		screenW: screenW,
		screenH: screenH,
	}
	// axis ranges for scaling touch coordinates to pixels; failure means
	// the device reports pixels (or is a relative pointer)
	d.xRange, _ = ioctlAbsInfo(fd, absX)
	d.yRange, _ = ioctlAbsInfo(fd, absY)
	return d, nil
}

// eviocgabs computes EVIOCGABS(abs): _IOR('E', 0x40+abs, input_absinfo).
func eviocgabs(abs uint16) uint {
	const (
		iocRead   = 2
		sizeShift = 16
		typeShift = 8
		dirShift  = 30
	)
	return uint(iocRead)<<dirShift |
		uint(unsafe.Sizeof(absInfo{}))<<sizeShift |
		uint('E')<<typeShift |
		uint(0x40+abs)
}

func ioctlAbsInfo(fd int, abs uint16) (absInfo, error) {
	var info absInfo
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd),
		uintptr(eviocgabs(abs)), uintptr(unsafe.Pointer(&info)))
	if errno != 0 {
		return absInfo{}, errors.New(errno)
	}
	return info, nil
}

// Poll drains all pending events and returns completed taps. It never
// blocks.
func (p *Pointer) Poll() []Tap {
	if p == nil {
		return nil
	}
	var taps []Tap
	buf := make([]byte, 64*eventSize)
	for _, d := range p.devices {
		for {
			// EAGAIN means no pending events, surfaced as an error here
			n, err := unix.Read(d.fd, buf)
			if err != nil || n < eventSize {
				break
			}
			taps = append(taps, d.consume(buf[:n-n%eventSize])...)
		}
	}
	return taps
}

func (d *Device) consume(raw []byte) []Tap {
	var taps []Tap
	rdr := bytes.NewReader(raw)
	var ev inputEvent
	for rdr.Len() >= eventSize {
		if err := binary.Read(rdr, binary.NativeEndian, &ev); err != nil {
			break
		}
		switch ev.Type {
		case evAbs:
			switch ev.Code {
			case absX, absMTPositionX:
				d.x = d.scale(ev.Value, d.xRange, d.screenW)
			case absY, absMTPositionY:
				d.y = d.scale(ev.Value, d.yRange, d.screenH)
			}
		case evRel:
			switch ev.Code {
			case relX:
				d.x = clamp32(d.x+ev.Value, 0, int32(d.screenW-1))
			case relY:
				d.y = clamp32(d.y+ev.Value, 0, int32(d.screenH-1))
			}
		case evKey:
			if ev.Code != btnTouch && ev.Code != btnLeft {
				continue
			}
			switch ev.Value {
			case 1:
				d.down = true
			case 0:
				if d.down {
					d.down = false
					taps = append(taps, Tap{X: int(d.x), Y: int(d.y)})
				}
			}
		}
	}
	return taps
}

func (d *Device) scale(v int32, r absInfo, screen int) int32 {
	if r.Maximum <= r.Minimum {
		return clamp32(v, 0, int32(screen-1))
	}
	scaled := int64(v-r.Minimum) * int64(screen-1) / int64(r.Maximum-r.Minimum)
	return clamp32(int32(scaled), 0, int32(screen-1))
}

func clamp32(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (p *Pointer) Close() error {
	if p == nil {
		return nil
	}
	var errs []error
	for _, d := range p.devices {
		errs = append(errs, unix.Close(d.fd))
	}
	p.devices = nil
	return errors.Join(errs...)
}

// Available reports whether any input device was opened.
func (p *Pointer) Available() bool { return p != nil && len(p.devices) > 0 }
