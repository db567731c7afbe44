// Package pipe drives an optional external renderer process over a
// line-oriented stdin pipe. Commands are fire-and-forget: there is no
// acknowledgment protocol. A broken pipe triggers a bounded restart before
// the client permanently gives up and the caller falls back to the
// in-process renderer.
package pipe

import (
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"time"

	"github.com/srlehn/fbclock/internal/consts"
	"github.com/srlehn/fbclock/internal/errors"
	"github.com/srlehn/fbclock/internal/logx"
)

// maxRestarts bounds the restart-retry policy after write failures.
const maxRestarts = 3

type Renderer struct {
	path string
	args []string

	cmd      *exec.Cmd
	stdin    io.WriteCloser
	restarts int
	stopped  bool

	lp logx.LoggerProvider
}

func New(path string, lp logx.LoggerProvider, args ...string) *Renderer {
	return &Renderer{path: path, args: args, lp: lp}
}

func (r *Renderer) Start() error {
	if r == nil {
		return errors.NilReceiver()
	}
	if r.stopped {
		return errors.New(consts.ErrRendererStopped)
	}
	cmd := exec.Command(r.path, r.args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return errors.New(err)
	}
	if err := cmd.Start(); err != nil {
		return errors.New(err)
	}
	r.cmd, r.stdin = cmd, stdin
	logx.Info(`native renderer started`, r.lp, `path`, r.path, `pid`, cmd.Process.Pid)
	return nil
}

// Stopped reports whether the restart budget is exhausted; the caller must
// then render in-process.
func (r *Renderer) Stopped() bool { return r == nil || r.stopped }

func (r *Renderer) send(line string) error {
	if r == nil {
		return errors.NilReceiver()
	}
	for {
		if r.stopped {
			return errors.New(consts.ErrRendererStopped)
		}
		if r.stdin == nil {
			if err := r.restart(); err != nil {
				continue
			}
		}
		if _, err := io.WriteString(r.stdin, line+"\n"); err == nil {
			return nil
		} else {
			logx.Warn(`native renderer write failed`, r.lp, `error`, err)
			r.teardown()
		}
	}
}

func (r *Renderer) restart() error {
	r.restarts++
	if r.restarts > maxRestarts {
		r.stopped = true
		logx.Error(`native renderer restart budget exhausted, falling back to in-process rendering`,
			r.lp, `restarts`, maxRestarts)
		return errors.New(consts.ErrRendererStopped)
	}
	logx.Warn(`restarting native renderer`, r.lp, `attempt`, r.restarts)
	return logx.Err(r.Start(), r.lp, slog.LevelWarn)
}

func (r *Renderer) teardown() {
	if r.stdin != nil {
		_ = r.stdin.Close()
		r.stdin = nil
	}
	if r.cmd != nil && r.cmd.Process != nil {
		_ = r.cmd.Process.Kill()
		_, _ = r.cmd.Process.Wait()
	}
	r.cmd = nil
}

func (r *Renderer) Time(s string) error        { return r.send(cmdTime(s)) }
func (r *Renderer) Date(s string) error        { return r.send(cmdDate(s)) }
func (r *Renderer) Brightness(f float64) error { return r.send(cmdBrightness(f)) }
func (r *Renderer) Color(hex string) error     { return r.send(cmdColor(hex)) }
func (r *Renderer) Shift(x, y int) error       { return r.send(cmdShift(x, y)) }

// Close asks the renderer to quit and reaps the process.
func (r *Renderer) Close() error {
	if r == nil || r.cmd == nil {
		return nil
	}
	if r.stdin != nil {
		_, _ = io.WriteString(r.stdin, cmdQuit()+"\n")
		_ = r.stdin.Close()
		r.stdin = nil
	}
	done := make(chan error, 1)
	cmd := r.cmd
	go func() { done <- cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		_ = cmd.Process.Kill()
		<-done
	}
	r.cmd = nil
	return nil
}

func cmdTime(s string) string        { return `TIME ` + s }
func cmdDate(s string) string        { return `DATE ` + s }
func cmdBrightness(f float64) string { return fmt.Sprintf(`BRIGHT %.2f`, f) }
func cmdColor(hex string) string     { return `COLOR ` + hex }
func cmdShift(x, y int) string       { return fmt.Sprintf(`SHIFT %d %d`, x, y) }
func cmdQuit() string                { return `QUIT` }
