package clock

import (
	"strings"
	"time"

	"github.com/srlehn/fbclock/internal/status"
)

// FormatTime renders the wall clock for display. The 12-hour form carries
// no leading zero (`2:05:09 PM`).
func FormatTime(t time.Time, format12h, showSeconds bool) string {
	switch {
	case format12h && showSeconds:
		return t.Format(`3:04:05 PM`)
	case format12h:
		return t.Format(`3:04 PM`)
	case showSeconds:
		return t.Format(`15:04:05`)
	}
	return t.Format(`15:04`)
}

// FormatDate renders the date line with the configured layout.
func FormatDate(t time.Time, layout string) string {
	return t.Format(layout)
}

// StatusItem is one segment of the bottom bar. Tapping it opens the
// settings overlay on Tab.
type StatusItem struct {
	Text string
	Tab  int
}

// StatusItems builds the bottom bar segments from the latest status
// snapshot.
func StatusItems(snap status.Snapshot, now time.Time, version string) []StatusItem {
	items := []StatusItem{
		{Text: `Net: ` + snap.Network, Tab: tabNetwork},
		{Text: `TZ: ` + snap.Timezone, Tab: tabDisplay},
		{Text: `Sync: ` + status.SinceString(snap.LastSync, now), Tab: tabNetwork},
	}
	if snap.RTCPresent {
		items = append(items, StatusItem{Text: `RTC`, Tab: tabNetwork})
	}
	if len(version) > 0 {
		items = append(items, StatusItem{Text: version, Tab: tabDisplay})
	}
	return items
}

// StatusLine is the bar as a single string, for logs and plain rendering.
func StatusLine(snap status.Snapshot, now time.Time, version string) string {
	items := StatusItems(snap, now, version)
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, it.Text)
	}
	return strings.Join(parts, ` | `)
}
