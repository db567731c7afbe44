// Package clock runs the render loop: one goroutine that polls input,
// applies the display policies and redraws on second or minute boundaries.
package clock

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math/rand"
	"time"

	"github.com/golang/freetype/truetype"

	"github.com/srlehn/fbclock/internal/buildinfo"
	"github.com/srlehn/fbclock/internal/config"
	"github.com/srlehn/fbclock/internal/errors"
	"github.com/srlehn/fbclock/internal/fb"
	"github.com/srlehn/fbclock/internal/input"
	"github.com/srlehn/fbclock/internal/logx"
	"github.com/srlehn/fbclock/internal/pipe"
	"github.com/srlehn/fbclock/internal/policy"
	"github.com/srlehn/fbclock/internal/render"
	"github.com/srlehn/fbclock/internal/sprite"
	"github.com/srlehn/fbclock/internal/status"
	"github.com/srlehn/fbclock/internal/weather"
)

type state int

const (
	stateNormal state = iota
	stateScreensaver
	stateOverlay
)

const (
	statusPollInterval  = 120 * time.Second
	overlayPollInterval = 50 * time.Millisecond
	timingLogInterval   = 10 * time.Second
	missLogInterval     = time.Minute

	// statusDim renders the bottom bar at a fraction of the display color.
	statusDim = 0.6

	statusBarMargin    = 12
	statusBarTapHeight = 80
)

// Shadow-buffer region tags. Each independently positioned element keeps
// its own tag so updating one never clears the others.
const (
	regionTime    = `time`
	regionDate    = `date`
	regionWeather = `weather`
)

// FrameWriter is the device half consumed by the loop; *fb.Device
// implements it.
type FrameWriter interface {
	Flush(shadow []byte, rects []image.Rectangle) error
	Close() error
}

// TapSource yields completed tap gestures; *input.Pointer implements it.
type TapSource interface {
	Poll() []input.Tap
	Close() error
}

type Clock struct {
	cfg *config.Config
	geo fb.Geometry
	dev FrameWriter
	buf *render.Buffer

	fnt *truetype.Font
	col color.NRGBA

	timeCache    *sprite.Cache
	dateCache    *sprite.Cache
	weatherCache *sprite.Cache
	statusCache  *sprite.Cache

	st  policy.State
	rng *rand.Rand

	weatherSvc *weather.Service
	statusSrc  status.Source
	snap       status.Snapshot
	report     *weather.Report

	lastWeatherPoll time.Time
	lastStatusPoll  time.Time

	pointer  TapSource
	overlay  *Overlay
	renderer *pipe.Renderer

	// statusItems records where each bar segment last landed, so taps on
	// the bar open the overlay on the matching tab.
	statusItems []statusItem
	statusTags  int

	// sent mirrors what the external renderer last received, so unchanged
	// values are not resent every second.
	sent struct {
		colorSent      bool
		bright         float64
		shiftX, shiftY int
		date           string
	}

	state     state
	lastTick  time.Time
	missLogAt time.Time
	timingAt  time.Time

	now func() time.Time
	lp  logx.LoggerProvider
}

type Option interface {
	ApplyOption(c *Clock) error
}

var _ Option = (OptFunc)(nil)

type OptFunc func(*Clock) error

func (o OptFunc) ApplyOption(c *Clock) error { return o(c) }

var _ Option = (Options)(nil)

type Options []Option

func (o Options) ApplyOption(c *Clock) error {
	for _, opt := range o {
		if opt == nil {
			continue
		}
		if err := opt.ApplyOption(c); err != nil {
			return errors.New(err)
		}
	}
	return nil
}

func WithConfig(cfg *config.Config) Option {
	return OptFunc(func(c *Clock) error {
		if cfg == nil {
			return errors.NilParam(cfg)
		}
		c.cfg = cfg
		return nil
	})
}

func WithLogger(logger *slog.Logger) Option {
	return OptFunc(func(c *Clock) error { c.lp = logx.Prov(logger); return nil })
}

// WithDevice supplies the output device and its geometry, bypassing
// framebuffer detection.
func WithDevice(dev FrameWriter, geo fb.Geometry) Option {
	return OptFunc(func(c *Clock) error {
		if dev == nil {
			return errors.NilParam(dev)
		}
		c.dev, c.geo = dev, geo
		return nil
	})
}

func WithStatusSource(src status.Source) Option {
	return OptFunc(func(c *Clock) error { c.statusSrc = src; return nil })
}

func WithTapSource(src TapSource) Option {
	return OptFunc(func(c *Clock) error { c.pointer = src; return nil })
}

// WithTimeSource overrides the wall clock, for tests.
func WithTimeSource(now func() time.Time) Option {
	return OptFunc(func(c *Clock) error {
		if now == nil {
			return errors.NilParam(now)
		}
		c.now = now
		return nil
	})
}

func NewClock(opts ...Option) (*Clock, error) {
	c := &Clock{now: time.Now, state: stateNormal}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.ApplyOption(c); err != nil {
			return nil, errors.New(err)
		}
	}
	if c.cfg == nil {
		c.cfg = config.Default()
	}
	if err := c.cfg.Validate(); err != nil {
		return nil, err
	}
	col, err := config.ParseHexColor(c.cfg.Display.Color)
	if err != nil {
		return nil, err
	}
	c.col = col
	if c.dev == nil {
		path := fb.DevicePath()
		geo, err := fb.Geom(path, c.lp)
		if err != nil {
			return nil, err
		}
		dev, err := fb.Open(path, geo, c.lp)
		if err != nil {
			// keep running headless, every flush logs the failure
			logx.Error(`framebuffer open failed, frames will be dropped`, c.lp,
				`device`, path, `error`, err)
		}
		c.dev, c.geo = dev, geo
	}
	buf, err := render.NewBuffer(c.geo)
	if err != nil {
		return nil, err
	}
	c.buf = buf
	c.fnt = sprite.FindFont(c.cfg.Display.FontPath, c.lp)
	c.st = policy.NewState(c.now())
	c.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	if err := logx.TimeIt(c.rebuildCaches, `sprite caches built`, c.lp); err != nil {
		return nil, err
	}
	if c.statusSrc == nil {
		c.statusSrc = status.NewSystemSource(c.lp)
	}
	if c.weatherSvc == nil {
		c.weatherSvc = weather.NewService(c.cfg.Weather, c.lp)
	}
	if c.pointer == nil {
		if ptr := input.Open(c.geo.Width, c.geo.Height, c.lp); ptr.Available() {
			c.pointer = ptr
		} else {
			_ = ptr.Close()
			logx.Info(`no input devices found, touch controls disabled`, c.lp)
		}
	}
	if path := c.cfg.Display.NativeRenderer; len(path) > 0 {
		c.renderer = pipe.New(path, c.lp)
		// a failed start is retried on the first send
		logx.IsErr(c.renderer.Start(), c.lp, slog.LevelWarn)
	}
	c.overlay = newOverlay(c.geo)
	return c, nil
}

// rebuildCaches rasterizes all four sprite caches. The time cache follows
// the current font-scale; on error the previous caches stay in use.
func (c *Clock) rebuildCaches() error {
	d := &c.cfg.Display
	timeCache, err := sprite.NewCache(c.fnt,
		float64(d.TimeFontSize)*c.st.FontScale, sprite.TimeCharset, c.col, c.lp)
	if err != nil {
		return err
	}
	dateCache, err := sprite.NewCache(c.fnt,
		float64(d.DateFontSize), sprite.DateCharset, c.col, c.lp)
	if err != nil {
		return err
	}
	weatherCache, err := sprite.NewCache(c.fnt,
		float64(d.WeatherFontSize), sprite.DateCharset, c.col, c.lp)
	if err != nil {
		return err
	}
	statusCache, err := sprite.NewCache(c.fnt,
		float64(d.StatusFontSize), sprite.DateCharset, c.col, c.lp)
	if err != nil {
		return err
	}
	c.timeCache, c.dateCache = timeCache, dateCache
	c.weatherCache, c.statusCache = weatherCache, statusCache
	return nil
}

// Run drives the loop until ctx is canceled.
func (c *Clock) Run(ctx context.Context) error {
	if c == nil || c.buf == nil {
		return errors.New(`clock not initialized`)
	}
	logx.Info(`fbclock starting`, c.lp,
		`version`, buildinfo.Summary(),
		`geometry`, fmt.Sprintf(`%dx%d`, c.geo.Width, c.geo.Height),
		`bpp`, c.geo.BytesPerPixel()*8)
	for {
		if ctx.Err() != nil {
			logx.Info(`fbclock shutting down`, c.lp)
			return nil
		}
		now := c.now()
		if c.pointer != nil {
			c.handleTaps(c.pointer.Poll())
		}
		c.step(now)
		c.sleep(ctx, now)
	}
}

// step runs one loop iteration at the given wall-clock instant.
func (c *Clock) step(now time.Time) {
	prev := c.state
	switch {
	case c.overlay.IsOpen():
		c.state = stateOverlay
	case policy.ScreensaverActive(&c.cfg.Display, now):
		c.state = stateScreensaver
	default:
		c.state = stateNormal
	}
	stateChanged := c.state != prev

	if c.state == stateScreensaver {
		if stateChanged {
			c.buf.Clear()
			c.flush()
			if c.renderer != nil && !c.renderer.Stopped() {
				_ = c.renderer.Brightness(0)
				c.sent.bright = 0
			}
			logx.Info(`screensaver window entered, display blanked`, c.lp)
		}
		return
	}
	if stateChanged && prev == stateScreensaver {
		// repaint everything after the blank period
		c.buf.Clear()
		logx.Info(`screensaver window left`, c.lp)
	}

	if !stateChanged && !c.renderDue(now) {
		return
	}
	if c.state == stateOverlay {
		c.renderOverlay(now)
		c.lastTick = now
		return
	}

	c.pollCollaborators(now)

	var changed bool
	c.st, changed = policy.UpdateShift(&c.cfg.Display, now, c.st, c.rng)
	if changed {
		// every region moved, partial clears cannot catch the old pixels
		c.buf.Clear()
		logx.Debug(`pixel shift`, c.lp, `x`, c.st.ShiftX, `y`, c.st.ShiftY)
	}
	c.st, changed = policy.UpdateFontScale(&c.cfg.Display, now, c.st, c.rng)
	if changed {
		err := logx.TimeIt(c.rebuildCaches, `sprite caches rebuilt`, c.lp,
			`scale`, c.st.FontScale)
		if !logx.IsErr(err, c.lp, slog.LevelError) {
			c.buf.Clear()
		}
	}

	c.render(now)
	c.lastTick = now
}

// renderDue reports whether the displayed time advanced past the last
// rendered frame: per second when seconds are shown, per minute otherwise.
func (c *Clock) renderDue(now time.Time) bool {
	if c.lastTick.IsZero() {
		return true
	}
	if c.cfg.Display.ShowSeconds || c.state == stateOverlay {
		return !now.Truncate(time.Second).Equal(c.lastTick.Truncate(time.Second))
	}
	return !now.Truncate(time.Minute).Equal(c.lastTick.Truncate(time.Minute))
}

func (c *Clock) pollCollaborators(now time.Time) {
	if c.lastStatusPoll.IsZero() || now.Sub(c.lastStatusPoll) >= statusPollInterval {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		c.snap = c.statusSrc.Check(ctx)
		cancel()
		c.lastStatusPoll = now
	}
	if c.weatherSvc != nil {
		every := time.Duration(c.cfg.Weather.UpdateIntervalSeconds) * time.Second
		if c.lastWeatherPoll.IsZero() || now.Sub(c.lastWeatherPoll) >= every {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			c.report = c.weatherSvc.Current(ctx)
			cancel()
			c.lastWeatherPoll = now
		}
	}
}

func (c *Clock) render(now time.Time) {
	bright := policy.Brightness(&c.cfg.Display, now)
	timeStr := FormatTime(now, c.cfg.Time.Format12h, c.cfg.Display.ShowSeconds)
	dateStr := FormatDate(now, c.cfg.Display.DateFormat)

	if c.renderer != nil && !c.renderer.Stopped() && c.renderRemote(timeStr, dateStr, bright) {
		return
	}

	prepStart := time.Now()
	timeImg := c.compose(c.timeCache, timeStr, bright,
		float64(c.cfg.Display.TimeFontSize)*c.st.FontScale)
	dateImg := c.compose(c.dateCache, dateStr, bright,
		float64(c.cfg.Display.DateFontSize))
	var weatherImg *image.RGBA
	if line := c.report.Line(); len(line) > 0 {
		weatherImg = c.compose(c.weatherCache, line, bright,
			float64(c.cfg.Display.WeatherFontSize))
	}
	prep := time.Since(prepStart)

	drawStart := time.Now()
	sx, sy := c.st.ShiftX, c.st.ShiftY
	h := c.geo.Height
	c.blitCentered(timeImg, h*38/100, sx, sy, regionTime)
	c.blitCentered(dateImg, h*62/100, sx, sy, regionDate)
	if weatherImg != nil {
		c.blitCentered(weatherImg, h*75/100, sx, sy, regionWeather)
	} else {
		c.buf.ClearRegion(regionWeather)
	}
	if c.cfg.Display.ShowStatusBar {
		c.renderStatusBar(now, bright*statusDim, sx, sy)
	} else {
		c.clearStatusBar()
	}
	draw := time.Since(drawStart)

	writeStart := time.Now()
	c.flush()
	write := time.Since(writeStart)

	if time.Since(c.timingAt) >= timingLogInterval {
		c.timingAt = time.Now()
		logx.Debug(`render pass`, c.lp, `prep`, prep, `draw`, draw, `write`, write)
	}
}

type statusItem struct {
	rect image.Rectangle
	tab  int
}

// renderStatusBar lays the bar segments out left to right, centered as a
// group, and records each segment's rectangle for tap routing.
func (c *Clock) renderStatusBar(now time.Time, bright float64, sx, sy int) {
	items := StatusItems(c.snap, now, buildinfo.Version)
	size := float64(c.cfg.Display.StatusFontSize)
	sep := c.compose(c.statusCache, ` | `, bright, size)
	imgs := make([]*image.RGBA, len(items))
	var total, h int
	for i, it := range items {
		imgs[i] = c.compose(c.statusCache, it.Text, bright, size)
		if imgs[i] == nil {
			continue
		}
		total += imgs[i].Bounds().Dx()
		if dy := imgs[i].Bounds().Dy(); dy > h {
			h = dy
		}
	}
	if sep != nil {
		total += sep.Bounds().Dx() * (len(items) - 1)
	}
	x := (c.geo.Width-total)/2 + sx
	y := c.geo.Height - h - statusBarMargin + sy
	c.statusItems = c.statusItems[:0]
	for i, img := range imgs {
		if i > 0 && sep != nil {
			c.buf.Blit(sep, x, y, fmt.Sprintf(`status.sep.%d`, i))
			x += sep.Bounds().Dx()
		}
		if img == nil {
			continue
		}
		r := c.buf.Blit(img, x, y, fmt.Sprintf(`status.%d`, i))
		c.statusItems = append(c.statusItems, statusItem{rect: r, tab: items[i].Tab})
		x += img.Bounds().Dx()
	}
	// segments that existed last frame but not this one leave stale pixels
	for i := len(items); i < c.statusTags; i++ {
		c.buf.ClearRegion(fmt.Sprintf(`status.%d`, i))
		c.buf.ClearRegion(fmt.Sprintf(`status.sep.%d`, i))
	}
	if len(items) > c.statusTags {
		c.statusTags = len(items)
	}
}

func (c *Clock) clearStatusBar() {
	for i := 0; i < c.statusTags; i++ {
		c.buf.ClearRegion(fmt.Sprintf(`status.%d`, i))
		c.buf.ClearRegion(fmt.Sprintf(`status.sep.%d`, i))
	}
	c.statusItems = c.statusItems[:0]
}

// statusTabFor maps a tap to the overlay tab of the bar segment under it.
// Taps on the bar strip but between segments open the display tab.
func (c *Clock) statusTabFor(x int) int {
	for _, it := range c.statusItems {
		if x >= it.rect.Min.X && x < it.rect.Max.X {
			return it.tab
		}
	}
	return tabDisplay
}

// renderRemote forwards the frame to the external renderer. It returns
// false when the renderer has permanently stopped, so the caller renders
// the same frame in-process.
func (c *Clock) renderRemote(timeStr, dateStr string, bright float64) bool {
	r := c.renderer
	if !c.sent.colorSent && r.Color(c.cfg.Display.Color) == nil {
		c.sent.colorSent = true
	}
	if c.sent.bright != bright && r.Brightness(bright) == nil {
		c.sent.bright = bright
	}
	if (c.sent.shiftX != c.st.ShiftX || c.sent.shiftY != c.st.ShiftY) &&
		r.Shift(c.st.ShiftX, c.st.ShiftY) == nil {
		c.sent.shiftX, c.sent.shiftY = c.st.ShiftX, c.st.ShiftY
	}
	if c.sent.date != dateStr && r.Date(dateStr) == nil {
		c.sent.date = dateStr
	}
	_ = r.Time(timeStr)
	if r.Stopped() {
		logx.Warn(`external renderer gone, rendering in-process`, c.lp)
		return false
	}
	return true
}

// compose renders text from the cache, falling back to direct rendering on
// a cache miss. Misses are logged rate-limited; they recur every frame.
func (c *Clock) compose(cache *sprite.Cache, text string, brightness, size float64) *image.RGBA {
	img, err := cache.Compose(text, brightness)
	if err == nil {
		return img
	}
	var miss *sprite.MissError
	if errors.As(err, &miss) && time.Since(c.missLogAt) >= missLogInterval {
		c.missLogAt = time.Now()
		logx.Warn(`sprite cache miss, falling back to direct rendering`, c.lp,
			`rune`, string(miss.Rune), `text`, text)
	}
	img, err = sprite.Direct(c.fnt, size, text, dimColor(c.col, brightness))
	if logx.IsErr(err, c.lp, slog.LevelError, `text`, text) {
		return nil
	}
	return img
}

func (c *Clock) blitCentered(img *image.RGBA, centerY, sx, sy int, tag string) {
	if img == nil {
		c.buf.ClearRegion(tag)
		return
	}
	x := (c.geo.Width - img.Bounds().Dx()) / 2
	y := centerY - img.Bounds().Dy()/2
	c.buf.Blit(img, x+sx, y+sy, tag)
}

// flush writes the dirty regions out. A failed write drops the frame; the
// next boundary renders a fresh one.
func (c *Clock) flush() {
	logx.IsErr(c.dev.Flush(c.buf.Bytes(), c.buf.Dirty()), c.lp, slog.LevelWarn)
	c.buf.ResetDirty()
}

func (c *Clock) handleTaps(taps []input.Tap) {
	for _, tap := range taps {
		if c.overlay.IsOpen() {
			if c.overlay.Handle(tap, c.cfg) {
				c.buf.Clear()
				c.lastTick = time.Time{}
			}
			continue
		}
		if tap.Y >= c.geo.Height-statusBarTapHeight {
			c.overlay.OpenAt(c.statusTabFor(tap.X))
			c.buf.Clear()
			c.lastTick = time.Time{}
			logx.Info(`settings overlay opened`, c.lp,
				`tab`, c.overlay.tabs[c.overlay.active].name)
		}
	}
}

// sleep waits for the next render boundary or a short poll interval while
// the overlay is open.
func (c *Clock) sleep(ctx context.Context, now time.Time) {
	var d time.Duration
	switch {
	case c.state == stateOverlay:
		d = overlayPollInterval
	case c.cfg.Display.ShowSeconds || c.state == stateScreensaver:
		d = now.Truncate(time.Second).Add(time.Second).Sub(now)
	default:
		d = now.Truncate(time.Minute).Add(time.Minute).Sub(now)
	}
	if d <= 0 {
		d = time.Millisecond
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (c *Clock) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.renderer != nil {
		errs = append(errs, c.renderer.Close())
	}
	if c.pointer != nil {
		errs = append(errs, c.pointer.Close())
	}
	if c.dev != nil {
		errs = append(errs, c.dev.Close())
	}
	return errors.Join(errs...)
}

func dimColor(col color.NRGBA, factor float64) color.NRGBA {
	if factor >= 1 {
		return col
	}
	if factor < 0 {
		factor = 0
	}
	col.R = uint8(float64(col.R) * factor)
	col.G = uint8(float64(col.G) * factor)
	col.B = uint8(float64(col.B) * factor)
	return col
}
