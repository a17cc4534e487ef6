package cmd

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/Kush1612/BuckIt/pkg/output"
)

// Version is set at build time with -ldflags "-X .../internal/cmd.Version=v1.2.3".
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		output.Printf("buckit %s (%s/%s)\n", Version, runtime.GOOS, runtime.GOARCH)
	},
}
