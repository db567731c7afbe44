// Package fbclock renders a digital clock to a Linux framebuffer device.
// This package is the convenience surface; the pieces live under clock/
// and internal/.
package fbclock

import (
	"context"
	"log/slog"

	"github.com/srlehn/fbclock/clock"
	"github.com/srlehn/fbclock/internal/config"
)

// DefaultConfig holds the chosen default options for NewClock.
var DefaultConfig = clock.Options{}

// NewClock builds a clock with the default options applied first.
func NewClock(opts ...clock.Option) (*clock.Clock, error) {
	return clock.NewClock(append(clock.Options{DefaultConfig}, opts...)...)
}

// Run loads the configuration file at cfgPath (built-in defaults if empty)
// and drives the clock until ctx is canceled.
func Run(ctx context.Context, cfgPath string, logger *slog.Logger) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	c, err := NewClock(
		clock.WithConfig(cfg),
		clock.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer c.Close()
	return c.Run(ctx)
}
