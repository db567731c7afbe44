package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/go-errors/errors"
	"github.com/spf13/cobra"

	"github.com/srlehn/fbclock/internal/consts"
)

var rootCmd = &cobra.Command{
	Short:        "fbclock renders a digital clock to the Linux framebuffer",
	Long:         "fbclock renders a digital clock to the Linux framebuffer",
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
		os.Exit(1)
	},
}

func init() {
	cobra.EnablePrefixMatching = true
	rootCmd.PersistentFlags().BoolVar(&debug, `debug`, false, `debug errors`)
	rootCmd.PersistentFlags().StringVar(&logLevel, `log-level`, ``, `log level (debug|info|warn|error)`)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var (
	debug    bool
	logLevel string
)

func run(fn func() error) {
	var err error
	if fn == nil {
		err = errors.New(consts.ErrNilParam)
	} else {
		err = fn()
	}
	if err != nil {
		if stackFramer, ok := err.(interface{ ErrorStack() string }); debug && ok {
			fmt.Println(stackFramer.ErrorStack())
		} else {
			log.Fatal(err)
		}
	}
}

func newLogger() *slog.Logger {
	level := logLevel
	if len(level) == 0 {
		level = os.Getenv(`LOG_LEVEL`)
	}
	var lvl slog.Level
	switch strings.ToLower(level) {
	case `debug`:
		lvl = slog.LevelDebug
	case `warn`:
		lvl = slog.LevelWarn
	case `error`:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
