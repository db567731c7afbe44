// Package status polls network, NTP-sync and host state for the status
// bar. The render core only consumes Snapshot values; it never depends on
// subprocess semantics directly.
package status

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/srlehn/fbclock/internal/logx"
)

// Snapshot is one poll result. Failed checks degrade to the previous or
// "Unknown" values; they never propagate as errors.
type Snapshot struct {
	Network    string
	NTPSynced  bool
	LastSync   time.Time
	Timezone   string
	Hostname   string
	Uptime     time.Duration
	RTCPresent bool
}

const (
	NetworkConnected = `Connected`
	NetworkDown      = `No Network`
	NetworkUnknown   = `Unknown`
)

// Source yields status snapshots. Implemented by SystemSource and by fakes
// in tests.
type Source interface {
	Check(ctx context.Context) Snapshot
}

// SystemSource checks the live system: a TCP dial for reachability, a
// timedatectl shell-out for NTP sync, gopsutil for host info. All calls are
// bounded by short timeouts so a stall never blocks the render loop for
// long.
type SystemSource struct {
	lp logx.LoggerProvider

	probeAddr   string
	dialTimeout time.Duration
	execTimeout time.Duration
	rtcDevice   string

	lastSync time.Time
}

var _ Source = (*SystemSource)(nil)

func NewSystemSource(lp logx.LoggerProvider) *SystemSource {
	return &SystemSource{
		lp:          lp,
		probeAddr:   `8.8.8.8:53`,
		dialTimeout: 3 * time.Second,
		execTimeout: 2 * time.Second,
		rtcDevice:   `/dev/rtc0`,
	}
}

func (s *SystemSource) Check(ctx context.Context) Snapshot {
	snap := Snapshot{
		Network:  NetworkUnknown,
		Timezone: timezoneName(),
	}
	if s == nil {
		return snap
	}

	if conn, err := net.DialTimeout(`tcp`, s.probeAddr, s.dialTimeout); err == nil {
		conn.Close()
		snap.Network = NetworkConnected
	} else {
		snap.Network = NetworkDown
	}

	if synced := s.checkNTP(ctx); synced {
		snap.NTPSynced = true
		s.lastSync = time.Now()
	}
	snap.LastSync = s.lastSync

	if info, err := host.InfoWithContext(ctx); err == nil {
		snap.Hostname = info.Hostname
		snap.Uptime = time.Duration(info.Uptime) * time.Second
	} else {
		logx.IsErr(err, s.lp, slog.LevelDebug, `check`, `host`)
	}

	if _, err := os.Stat(s.rtcDevice); err == nil {
		snap.RTCPresent = true
	}
	return snap
}

func (s *SystemSource) checkNTP(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, s.execTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx,
		`timedatectl`, `show`, `--property=NTPSynchronized`, `--value`).Output()
	if logx.IsErr(err, s.lp, slog.LevelDebug, `check`, `ntp`) {
		return false
	}
	return strings.TrimSpace(string(out)) == `yes`
}

func timezoneName() string {
	for _, key := range []string{`TIMEZONE`, `TZ`} {
		if tz, ok := os.LookupEnv(key); ok && len(tz) > 0 {
			return tz
		}
	}
	return `UTC`
}

// SinceString formats the time since the last NTP sync as a short relative
// string for the status bar.
func SinceString(lastSync, now time.Time) string {
	if lastSync.IsZero() {
		return `Never`
	}
	delta := now.Sub(lastSync)
	switch {
	case delta >= 24*time.Hour:
		return fmt.Sprintf(`%dd ago`, int(delta.Hours()/24))
	case delta >= time.Hour:
		return fmt.Sprintf(`%dh ago`, int(delta.Hours()))
	case delta >= time.Minute:
		return fmt.Sprintf(`%dm ago`, int(delta.Minutes()))
	}
	return `Just now`
}
