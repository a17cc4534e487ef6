package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/Kush1612/BuckIt/pkg/formatter"
	"github.com/Kush1612/BuckIt/pkg/output"
	"github.com/Kush1612/BuckIt/pkg/realtime"
	"github.com/Kush1612/BuckIt/pkg/service"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow changes to the active list as they happen",
	Long:  "Print the active list, then reprint it whenever another member changes it. Stop with Ctrl-C.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd, func(ctx context.Context, d *service.Deps) error {
			return service.NewWatchService(d).Watch(ctx, service.WatchHandlers{
				OnRefresh: printRefresh,
				OnStatus: func(st realtime.Status, err error) {
					if output.IsJSON() {
						return
					}
					switch st {
					case realtime.StatusSubscribed:
						output.PrintInfo("Listening for changes")
					case realtime.StatusChannelError, realtime.StatusTimedOut:
						output.PrintWarning("Realtime %s: %v", st, err)
					}
				},
			})
		})
	},
}

func printRefresh(r service.Refresh) {
	if output.IsJSON() {
		_ = output.Print("", r)
		return
	}

	title := "Items"
	if r.Change != nil {
		title = time.Now().Format("15:04:05") + " " + string(r.Change.Type) + " " + r.Change.RowID()
	}
	rows := make([][]string, 0, len(r.Items))
	for _, it := range r.Items {
		rows = append(rows, formatter.ItemRow(it))
	}
	_ = output.PrintList(title, r.Items, formatter.ItemHeaders, rows)
	if r.Evicted > 0 {
		output.PrintInfo("%s now confirmed", formatter.Plural(r.Evicted, "pending photo", "pending photos"))
	}
}
