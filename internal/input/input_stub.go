//go:build !linux || android

package input

import (
	"github.com/srlehn/fbclock/internal/logx"
)

type Tap struct {
	X int
	Y int
}

// Pointer is only functional on Linux evdev targets.
type Pointer struct{}

func Open(int, int, logx.LoggerProvider) *Pointer { return &Pointer{} }

func (p *Pointer) Poll() []Tap     { return nil }
func (p *Pointer) Close() error    { return nil }
func (p *Pointer) Available() bool { return false }
