package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/srlehn/fbclock"
)

var runConfigPath string

func init() {
	runCmd.Flags().StringVarP(&runConfigPath, `config`, `c`, ``, `configuration file`)
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   runCmdStr,
	Short: `run the clock daemon`,
	Long: `run the clock daemon

` + runUsageStr + `

    -c <path>, --config <path>    YAML configuration file, built-in
                                  defaults when omitted`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		run(runFunc(cmd, args))
	},
}

var (
	runCmdStr   = "run"
	runUsageStr = `usage: ` + os.Args[0] + ` ` + runCmdStr + ` (-c <config>)`
)

func runFunc(cmd *cobra.Command, args []string) func() error {
	return func() error {
		ctx, stop := signal.NotifyContext(context.Background(),
			os.Interrupt, syscall.SIGTERM)
		defer stop()
		return fbclock.Run(ctx, runConfigPath, newLogger())
	}
}
