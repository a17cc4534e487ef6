package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Kush1612/BuckIt/pkg/output"
	"github.com/Kush1612/BuckIt/pkg/service"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the backend configuration and connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := service.NewDoctorService().Check(cmd.Context())
		if report != nil && !output.IsJSON() {
			url := report.URL
			if url == "" {
				url = "(not set)"
			}
			cfg := report.ConfigFile
			if cfg == "" {
				cfg = "(none)"
			}
			_ = output.PrintRecord("Backend", []output.Field{
				{Key: "URL", Value: url},
				{Key: "Anon key", Value: report.AnonKey},
				{Key: "Config file", Value: cfg},
			}, report)
		}
		if err != nil {
			return err
		}
		if output.IsJSON() {
			return output.Print("", report)
		}
		output.PrintSuccess("Reachable. HTTP status %d", report.Status)
		if report.Bucket != "" {
			visibility := "private, photos use signed URLs"
			if report.BucketPublic {
				visibility = "public"
			}
			output.PrintInfo("Bucket %q is %s", report.Bucket, visibility)
		}
		return nil
	},
}
