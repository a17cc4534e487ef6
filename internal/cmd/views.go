package cmd

import (
	"context"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Kush1612/BuckIt/pkg/formatter"
	"github.com/Kush1612/BuckIt/pkg/output"
	"github.com/Kush1612/BuckIt/pkg/service"
)

var pendingList string

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Show every photo of the active list by month and day",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd, func(ctx context.Context, d *service.Deps) error {
			g, err := service.NewGalleryService(d).Gallery(ctx)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.Print("", g)
			}
			if g.Count() == 0 {
				output.PrintInfo("No photos yet")
				return nil
			}

			heading := color.New(color.Bold, color.FgCyan)
			for _, m := range g.Months {
				heading.Fprintln(output.Writer(), m.Label)
				for _, day := range m.Days {
					rows := make([][]string, 0, len(day.Photos))
					for _, p := range day.Photos {
						state := ""
						if p.Pending {
							state = "pending"
						}
						rows = append(rows, []string{formatter.Truncate(p.Title, 30), p.File, state, p.URI})
					}
					if err := output.PrintList(day.Label, day.Photos, []string{"Item", "File", "State", "URI"}, rows); err != nil {
						return err
					}
				}
				output.Println()
			}
			output.PrintInfo("%s", formatter.Plural(g.Count(), "photo", "photos"))
			return nil
		})
	},
}

var memoriesCmd = &cobra.Command{
	Use:   "memories",
	Short: "Show completed items and the memories kept on them",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd, func(ctx context.Context, d *service.Deps) error {
			entries, err := service.NewMemoriesService(d).Memories(ctx)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.Print("", entries)
			}
			if len(entries) == 0 {
				output.PrintInfo("No memories yet. Complete an item or attach a photo with 'buckit item photo'")
				return nil
			}

			for _, e := range entries {
				fields := []output.Field{
					{Key: "Category", Value: formatter.Category(e.Item.Category)},
					{Key: "Done", Value: formatter.Check(e.Item.Completed)},
					{Key: "Photos", Value: formatter.Plural(len(e.Photos), "photo", "photos")},
				}
				for _, m := range e.Memories {
					if m.Note != "" {
						fields = append(fields, output.Field{Key: m.File, Value: m.Note})
					}
				}
				if err := output.PrintRecord(e.Item.Title, fields, e); err != nil {
					return err
				}
				output.Println()
			}
			return nil
		})
	},
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Inspect photos waiting to show up on the backend",
}

var pendingLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "Show pending uploads",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd, func(ctx context.Context, d *service.Deps) error {
			svc := service.NewPendingService(d)
			if pendingList == "" {
				counts := svc.Counts(ctx)
				rows := make([][]string, 0, len(counts))
				for _, c := range counts {
					rows = append(rows, []string{c.ListID, formatter.Count(c.Count)})
				}
				if len(counts) == 0 && !output.IsJSON() {
					output.PrintInfo("Nothing pending")
					return nil
				}
				return output.PrintList("Pending uploads", counts, []string{"List", "Photos"}, rows)
			}

			listID, ups, err := svc.Uploads(ctx, pendingList)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(ups))
			for _, u := range ups {
				item := ""
				if u.ItemID != nil {
					item = *u.ItemID
				}
				rows = append(rows, []string{u.File, formatter.Truncate(u.Title, 30), item, u.Date})
			}
			return output.PrintList("Pending for "+listID, ups, []string{"File", "Item", "Item ID", "Date"}, rows)
		})
	},
}

var pendingClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget the pending uploads of a list",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd, func(ctx context.Context, d *service.Deps) error {
			listID, err := service.NewPendingService(d).Clear(ctx, pendingList)
			if err != nil {
				return err
			}
			output.PrintSuccess("Cleared pending uploads of %s", listID)
			return nil
		})
	},
}

func init() {
	pendingLsCmd.Flags().StringVarP(&pendingList, "list", "l", "", "List ID (default: all lists)")
	pendingClearCmd.Flags().StringVarP(&pendingList, "list", "l", "", "List ID (default: the active list)")

	pendingCmd.AddCommand(pendingLsCmd)
	pendingCmd.AddCommand(pendingClearCmd)
}
