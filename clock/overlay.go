package clock

import (
	"fmt"
	"image"
	"time"

	"github.com/srlehn/fbclock/internal/config"
	"github.com/srlehn/fbclock/internal/fb"
	"github.com/srlehn/fbclock/internal/input"
	"github.com/srlehn/fbclock/internal/status"
)

// Overlay tab indices. Status-bar items open the overlay on the tab that
// covers them.
const (
	tabDisplay = iota
	tabNetwork
)

// Action identifies what a tapped overlay button does.
type Action int

const (
	ActionNone Action = iota
	ActionToggleSeconds
	ActionToggleFormat
	ActionTogglePixelShift
	ActionClose
)

type button struct {
	rect   image.Rectangle
	action Action
	label  func(c *Clock) string
}

type tab struct {
	name    string
	buttons []button
}

// Overlay is the tap-driven settings panel drawn over the clock face. It
// only mutates the live configuration; persistence is out of scope.
type Overlay struct {
	open    bool
	active  int
	headers []image.Rectangle
	tabs    []tab
}

// newOverlay lays out a tab header row and one button column per tab,
// sized relative to the screen.
func newOverlay(geo fb.Geometry) *Overlay {
	w := geo.Width * 3 / 5
	h := geo.Height / 10
	gap := h / 3
	x0 := (geo.Width - w) / 2
	headerY := geo.Height * 22 / 100

	o := &Overlay{tabs: []tab{
		{name: `Display`, buttons: []button{
			{action: ActionToggleSeconds, label: func(c *Clock) string {
				return `Seconds: ` + onOff(c.cfg.Display.ShowSeconds)
			}},
			{action: ActionToggleFormat, label: func(c *Clock) string {
				if c.cfg.Time.Format12h {
					return `Clock: 12H`
				}
				return `Clock: 24H`
			}},
			{action: ActionTogglePixelShift, label: func(c *Clock) string {
				return `Pixel Shift: ` + onOff(c.cfg.Display.PixelShiftEnabled)
			}},
			{action: ActionClose, label: func(*Clock) string { return `Close` }},
		}},
		{name: `Network`, buttons: []button{
			{action: ActionNone, label: func(c *Clock) string {
				return `Net: ` + c.snap.Network
			}},
			{action: ActionNone, label: func(c *Clock) string {
				return `Sync: ` + status.SinceString(c.snap.LastSync, c.now())
			}},
			{action: ActionNone, label: func(c *Clock) string {
				if len(c.snap.Hostname) == 0 {
					return `Host: -`
				}
				return `Host: ` + c.snap.Hostname
			}},
			{action: ActionClose, label: func(*Clock) string { return `Close` }},
		}},
	}}

	hw := w / len(o.tabs)
	for i := range o.tabs {
		o.headers = append(o.headers,
			image.Rect(x0+i*hw, headerY, x0+(i+1)*hw, headerY+h))
	}
	for i := range o.tabs {
		y := headerY + h + gap
		for j := range o.tabs[i].buttons {
			o.tabs[i].buttons[j].rect = image.Rect(x0, y, x0+w, y+h)
			y += h + gap
		}
	}
	return o
}

func onOff(b bool) string {
	if b {
		return `ON`
	}
	return `OFF`
}

func (o *Overlay) IsOpen() bool { return o != nil && o.open }

func (o *Overlay) SetOpen(open bool) {
	if o != nil {
		o.open = open
	}
}

// OpenAt opens the overlay with the given tab active.
func (o *Overlay) OpenAt(tabIdx int) {
	if o == nil {
		return
	}
	if tabIdx >= 0 && tabIdx < len(o.tabs) {
		o.active = tabIdx
	}
	o.open = true
}

// Handle routes a tap to the tab header or button under it and applies
// the bound action to cfg. It reports whether anything changed, which
// obliges the caller to redraw.
func (o *Overlay) Handle(tap input.Tap, cfg *config.Config) bool {
	if !o.IsOpen() || cfg == nil {
		return false
	}
	pt := image.Pt(tap.X, tap.Y)
	for i, r := range o.headers {
		if !pt.In(r) {
			continue
		}
		if i == o.active {
			return false
		}
		o.active = i
		return true
	}
	for _, b := range o.tabs[o.active].buttons {
		if !pt.In(b.rect) {
			continue
		}
		switch b.action {
		case ActionToggleSeconds:
			cfg.Display.ShowSeconds = !cfg.Display.ShowSeconds
		case ActionToggleFormat:
			cfg.Time.Format12h = !cfg.Time.Format12h
		case ActionTogglePixelShift:
			cfg.Display.PixelShiftEnabled = !cfg.Display.PixelShiftEnabled
		case ActionClose:
			o.open = false
		default:
			// informational row
			return false
		}
		return true
	}
	return false
}

// renderOverlay draws the settings panel: title, a small live clock, the
// tab header row and the active tab's buttons, each in its own
// shadow-buffer region.
func (c *Clock) renderOverlay(now time.Time) {
	title := c.compose(c.dateCache, `Settings`, 1.0,
		float64(c.cfg.Display.DateFontSize))
	c.blitCentered(title, c.geo.Height*10/100, 0, 0, `overlay.title`)

	small := c.compose(c.statusCache,
		FormatTime(now, c.cfg.Time.Format12h, c.cfg.Display.ShowSeconds), 1.0,
		float64(c.cfg.Display.StatusFontSize))
	c.blitCentered(small, c.geo.Height*16/100, 0, 0, `overlay.clock`)

	for i, r := range c.overlay.headers {
		name := c.overlay.tabs[i].name
		if i == c.overlay.active {
			name = `[` + name + `]`
		}
		img := c.compose(c.weatherCache, name, 1.0,
			float64(c.cfg.Display.WeatherFontSize))
		if img == nil {
			continue
		}
		x := r.Min.X + (r.Dx()-img.Bounds().Dx())/2
		y := r.Min.Y + (r.Dy()-img.Bounds().Dy())/2
		c.buf.Blit(img, x, y, fmt.Sprintf(`overlay.tab.%d`, i))
	}

	for i, b := range c.overlay.tabs[c.overlay.active].buttons {
		img := c.compose(c.weatherCache, b.label(c), 1.0,
			float64(c.cfg.Display.WeatherFontSize))
		if img == nil {
			continue
		}
		x := b.rect.Min.X + (b.rect.Dx()-img.Bounds().Dx())/2
		y := b.rect.Min.Y + (b.rect.Dy()-img.Bounds().Dy())/2
		c.buf.Blit(img, x, y, fmt.Sprintf(`overlay.button.%d`, i))
	}
	c.flush()
}
