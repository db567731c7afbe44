package policy_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/srlehn/fbclock/internal/config"
	"github.com/srlehn/fbclock/internal/policy"
)

func TestInWindow(t *testing.T) {
	tests := map[string]struct {
		hour, start, end int
		want             bool
	}{
		"plain_inside":        {3, 2, 5, true},
		"plain_start_incl":    {2, 2, 5, true},
		"plain_end_excl":      {5, 2, 5, false},
		"plain_outside":       {12, 2, 5, false},
		"wrap_before_midn":    {23, 22, 6, true},
		"wrap_after_midn":     {3, 22, 6, true},
		"wrap_start_incl":     {22, 22, 6, true},
		"wrap_end_excl":       {6, 22, 6, false},
		"wrap_outside":        {12, 22, 6, false},
		"empty_window":        {4, 4, 4, false},
		"wrap_hour_zero":      {0, 22, 6, true},
		"plain_midnight_past": {0, 2, 5, false},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.InWindow(tt.hour, tt.start, tt.end))
		})
	}
}

func at(hour, min, sec int) time.Time {
	return time.Date(2025, 6, 15, hour, min, sec, 0, time.UTC)
}

func TestBrightnessNightWindow(t *testing.T) {
	d := &config.Default().Display // night 22-6, brightness 0.3
	assert.Equal(t, 0.3, policy.Brightness(d, at(23, 0, 0)))
	assert.Equal(t, 0.3, policy.Brightness(d, at(2, 0, 0)))
	assert.Equal(t, 1.0, policy.Brightness(d, at(10, 0, 0)))

	d2 := *d
	d2.DimAtNight = false
	assert.Equal(t, 1.0, policy.Brightness(&d2, at(23, 0, 0)))
}

func TestScreensaverWindow(t *testing.T) {
	d := &config.Default().Display // screensaver 2-5
	assert.True(t, policy.ScreensaverActive(d, at(3, 30, 0)))
	assert.False(t, policy.ScreensaverActive(d, at(5, 0, 0)))
	assert.False(t, policy.ScreensaverActive(d, at(14, 0, 0)))
}

func TestUpdateShiftDisableWindowForcesZero(t *testing.T) {
	d := config.Default().Display // disable window 12-14
	st := policy.NewState(at(12, 0, 0))
	st.ShiftX, st.ShiftY = 7, -3
	st.LastShift = at(12, 0, 0).Add(-time.Hour) // interval long elapsed

	st, changed := policy.UpdateShift(&d, at(13, 0, 0), st, rand.New(rand.NewSource(1)))
	assert.True(t, changed)
	assert.Zero(t, st.ShiftX)
	assert.Zero(t, st.ShiftY)

	// already zero: forcing again is not a change
	_, changed = policy.UpdateShift(&d, at(13, 30, 0), st, rand.New(rand.NewSource(1)))
	assert.False(t, changed)
}

func TestUpdateShiftGatedToSecondZero(t *testing.T) {
	d := config.Default().Display
	rng := rand.New(rand.NewSource(42))
	st := policy.NewState(at(8, 0, 0))
	st.LastShift = at(8, 0, 0).Add(-10 * time.Minute)

	_, changed := policy.UpdateShift(&d, at(8, 5, 17), st, rng)
	assert.False(t, changed, `must not shift mid-second`)

	st2, _ := policy.UpdateShift(&d, at(8, 5, 0), st, rng)
	assert.LessOrEqual(t, st2.ShiftX, d.PixelShiftMax)
	assert.GreaterOrEqual(t, st2.ShiftX, -d.PixelShiftMax)
	assert.LessOrEqual(t, st2.ShiftY, d.PixelShiftMax)
	assert.GreaterOrEqual(t, st2.ShiftY, -d.PixelShiftMax)
	assert.Equal(t, at(8, 5, 0), st2.LastShift)
}

func TestUpdateShiftThrottled(t *testing.T) {
	d := config.Default().Display
	rng := rand.New(rand.NewSource(7))
	st := policy.NewState(at(8, 0, 0))

	// only 30s since last shift with 60s interval
	st.LastShift = at(8, 0, 30).Add(-30 * time.Second)
	_, changed := policy.UpdateShift(&d, at(8, 1, 0), st, rng)
	assert.False(t, changed)
}

func TestUpdateFontScale(t *testing.T) {
	d := config.Default().Display
	rng := rand.New(rand.NewSource(3))
	st := policy.NewState(at(9, 0, 0))
	st.LastFontVariation = at(9, 0, 0).Add(-10 * time.Minute)

	_, changed := policy.UpdateFontScale(&d, at(9, 2, 30), st, rng)
	assert.False(t, changed, `gated to second==0`)

	st2, changed := policy.UpdateFontScale(&d, at(9, 2, 0), st, rng)
	assert.True(t, changed)
	assert.InDelta(t, 1.0, st2.FontScale, 0.08)
	assert.NotEqual(t, 1.0, st2.FontScale)
}

func TestUpdateFontScaleDisabled(t *testing.T) {
	d := config.Default().Display
	d.FontVariationEnabled = false
	st := policy.NewState(at(9, 0, 0))
	st.FontScale = 1.05
	st2, changed := policy.UpdateFontScale(&d, at(9, 2, 0), st, rand.New(rand.NewSource(1)))
	assert.True(t, changed)
	assert.Equal(t, 1.0, st2.FontScale)
}
