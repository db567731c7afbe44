//go:build !linux || android

package fb

import (
	"image"

	"github.com/srlehn/fbclock/internal/consts"
	"github.com/srlehn/fbclock/internal/errors"
	"github.com/srlehn/fbclock/internal/logx"
)

// Device is only functional on Linux framebuffer targets.
type Device struct{}

func Open(string, Geometry, logx.LoggerProvider) (*Device, error) {
	return nil, errors.New(consts.ErrPlatformNotSupported)
}

func (d *Device) Mapped() bool       { return false }
func (d *Device) Geometry() Geometry { return Geometry{} }

func (d *Device) Flush([]byte, []image.Rectangle) error {
	return errors.New(consts.ErrPlatformNotSupported)
}

func (d *Device) Close() error { return nil }

func QueryGeometry(string) (Geometry, error) {
	return Geometry{}, errors.New(consts.ErrPlatformNotSupported)
}

func Geom(string, logx.LoggerProvider) (Geometry, error) {
	return Geometry{}, errors.New(consts.ErrPlatformNotSupported)
}
