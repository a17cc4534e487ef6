package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Kush1612/BuckIt/pkg/config"
	"github.com/Kush1612/BuckIt/pkg/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI settings",
	Long:  "Read and write values in the user config file, e.g. supabase.url or output.format",
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value := config.GetString(args[0])
		if output.IsJSON() {
			return output.Print("", map[string]string{args[0]: value})
		}
		output.Println(value)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Save a setting to the user config file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetString(args[0], args[1]); err != nil {
			return err
		}
		output.PrintSuccess("Saved %s to %s", args[0], config.GetConfigFilePath())
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the user config file path",
	Run: func(cmd *cobra.Command, args []string) {
		output.Println(config.GetConfigFilePath())
	},
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
}
