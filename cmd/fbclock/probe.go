package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/srlehn/fbclock/internal/fb"
	"github.com/srlehn/fbclock/internal/logx"
)

func init() {
	rootCmd.AddCommand(probeCmd)
}

var probeCmd = &cobra.Command{
	Use:   probeCmdStr,
	Short: `print detected framebuffer geometry`,
	Long: `print detected framebuffer geometry

` + probeUsageStr,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		run(probeFunc(cmd, args))
	},
}

var (
	probeCmdStr   = "probe"
	probeUsageStr = `usage: ` + os.Args[0] + ` ` + probeCmdStr
)

func probeFunc(cmd *cobra.Command, args []string) func() error {
	return func() error {
		path := fb.DevicePath()
		geo, err := fb.Geom(path, logx.Prov(newLogger()))
		if err != nil {
			return err
		}
		fmt.Printf("%s: %dx%d %s (%d bytes/frame)\n",
			path, geo.Width, geo.Height, geo.Format, geo.BufferLen())
		return nil
	}
}
