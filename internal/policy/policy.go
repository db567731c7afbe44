// Package policy holds the time-driven display policies: hour windows,
// night dimming, pixel shifting and font-size variation. Everything is a
// pure function of (config, wall clock, prior state) so the policies are
// testable without a framebuffer.
package policy

import (
	"math/rand"
	"time"

	"github.com/srlehn/fbclock/internal/config"
)

// InWindow reports whether hour lies in [start, end). start > end means the
// window wraps past midnight: [start, 24) ∪ [0, end). The start boundary is
// included, the end boundary excluded.
func InWindow(hour, start, end int) bool {
	if start <= end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

// State carries the mutable display state between render passes.
type State struct {
	Brightness        float64
	ShiftX            int
	ShiftY            int
	LastShift         time.Time
	FontScale         float64
	LastFontVariation time.Time
}

// NewState returns the neutral state for startup.
func NewState(now time.Time) State {
	return State{
		Brightness:        1.0,
		FontScale:         1.0,
		LastShift:         now,
		LastFontVariation: now,
	}
}

// Brightness returns the factor to apply to all rendered colors.
func Brightness(d *config.Display, now time.Time) float64 {
	if !d.DimAtNight {
		return 1.0
	}
	if InWindow(now.Hour(), d.NightStartHour, d.NightEndHour) {
		return d.NightBrightness
	}
	return 1.0
}

// ScreensaverActive reports whether the blank window covers now.
func ScreensaverActive(d *config.Display, now time.Time) bool {
	return d.ScreensaverEnabled &&
		InWindow(now.Hour(), d.ScreensaverStartHour, d.ScreensaverEndHour)
}

// UpdateShift recomputes the pixel-shift offset. A new random offset is
// picked at most every PixelShiftIntervalSeconds and only at a second==0
// boundary, to avoid visible mid-second tearing. Inside the disable window
// the offset is forced back to (0,0). The second return value reports
// whether the offset changed, which obliges the caller to clear the whole
// shadow buffer.
func UpdateShift(d *config.Display, now time.Time, st State, rng *rand.Rand) (State, bool) {
	if !d.PixelShiftEnabled {
		changed := st.ShiftX != 0 || st.ShiftY != 0
		st.ShiftX, st.ShiftY = 0, 0
		return st, changed
	}
	if InWindow(now.Hour(), d.PixelShiftDisableStartHour, d.PixelShiftDisableEndHour) {
		changed := st.ShiftX != 0 || st.ShiftY != 0
		st.ShiftX, st.ShiftY = 0, 0
		return st, changed
	}
	interval := time.Duration(d.PixelShiftIntervalSeconds) * time.Second
	if now.Sub(st.LastShift) < interval || now.Second() != 0 {
		return st, false
	}
	max := d.PixelShiftMax
	x := rng.Intn(2*max+1) - max
	y := rng.Intn(2*max+1) - max
	changed := x != st.ShiftX || y != st.ShiftY
	st.ShiftX, st.ShiftY = x, y
	st.LastShift = now
	return st, changed
}

// fontVariationAmplitude is the maximum relative deviation of the varied
// font size from the configured one.
const fontVariationAmplitude = 0.08

// UpdateFontScale perturbs the time font scale by up to ±8 % to vary which
// pixels are lit. Gated to second==0 like the pixel shift. A change
// requires the caller to rebuild the sprite caches; cached sprite sizes
// must never desynchronize from the active face.
func UpdateFontScale(d *config.Display, now time.Time, st State, rng *rand.Rand) (State, bool) {
	if !d.FontVariationEnabled {
		changed := st.FontScale != 1.0
		st.FontScale = 1.0
		return st, changed
	}
	interval := time.Duration(d.FontVariationIntervalSeconds) * time.Second
	if now.Sub(st.LastFontVariation) < interval || now.Second() != 0 {
		return st, false
	}
	scale := 1.0 + (rng.Float64()*2-1)*fontVariationAmplitude
	changed := scale != st.FontScale
	st.FontScale = scale
	st.LastFontVariation = now
	return st, changed
}
