package consts

import (
	"errors"
)

var (
	ErrNilParam             = errors.New(`nil parameter`)
	ErrDeviceClosed         = errors.New(`framebuffer device closed`)
	ErrPlatformNotSupported = errors.New(`platform not supported`)
	ErrUnknownPixFormat     = errors.New(`unknown framebuffer pixel format`)
	ErrRendererStopped      = errors.New(`native renderer permanently stopped`)
)

const (
	LibraryName = `fbclock`

	// DefaultFBDevice is used when $FRAMEBUFFER is unset.
	DefaultFBDevice = `/dev/fb0`

	SysfsVirtualSize  = `/sys/class/graphics/fb0/virtual_size`
	SysfsBitsPerPixel = `/sys/class/graphics/fb0/bits_per_pixel`
)
