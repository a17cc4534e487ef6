package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Kush1612/BuckIt/pkg/config"
	"github.com/Kush1612/BuckIt/pkg/logger"
	"github.com/Kush1612/BuckIt/pkg/output"
	"github.com/Kush1612/BuckIt/pkg/service"
)

var (
	verbose    bool
	configPath string
	outputFmt  string
)

var rootCmd = &cobra.Command{
	Use:   "buckit",
	Short: "BuckIt - a shared bucket list in your terminal",
	Long: `BuckIt is a command-line client for a shared bucket list.
Create a list, invite someone with its code, add the things you
want to do together and keep the photos of the ones you did.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(configPath); err != nil {
			return err
		}

		logger.Init(verbose)

		return output.SetFormat(outputFmt)
	},
}

// Execute runs the command tree. Errors are returned for the caller to
// format and map to an exit status.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: ~/.config/buckit/config.toml)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "", "Output format: text, json, table (default from config)")

	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(itemCmd)
	rootCmd.AddCommand(galleryCmd)
	rootCmd.AddCommand(memoriesCmd)
	rootCmd.AddCommand(pendingCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// withDeps opens the local state for the duration of fn.
func withDeps(cmd *cobra.Command, fn func(ctx context.Context, d *service.Deps) error) error {
	d, err := service.Open()
	if err != nil {
		return err
	}
	defer d.Close()
	return fn(cmd.Context(), d)
}
