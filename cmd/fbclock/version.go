package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/srlehn/fbclock/internal/buildinfo"
	"github.com/srlehn/fbclock/internal/consts"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: `print version information`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		run(func() error {
			fmt.Println(consts.LibraryName + ` ` + buildinfo.Summary())
			return nil
		})
	},
}
