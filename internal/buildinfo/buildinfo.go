// Package buildinfo carries version metadata injected at link time via
// -ldflags "-X github.com/srlehn/fbclock/internal/buildinfo.Version=...".
package buildinfo

import (
	"runtime"
	"runtime/debug"
)

var (
	Version   = `devel`
	Commit    = ``
	BuildTime = ``
)

// Summary returns a single human-readable version line for startup logging
// and the status bar.
func Summary() string {
	s := Version
	if Commit == `` {
		if bi, ok := debug.ReadBuildInfo(); ok {
			for _, kv := range bi.Settings {
				if kv.Key == `vcs.revision` && len(kv.Value) >= 7 {
					Commit = kv.Value[:7]
					break
				}
			}
		}
	}
	if Commit != `` {
		s += ` (` + Commit + `)`
	}
	if BuildTime != `` {
		s += ` built ` + BuildTime
	}
	return s + ` ` + runtime.GOOS + `/` + runtime.GOARCH
}
