package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Kush1612/BuckIt/pkg/api"
	"github.com/Kush1612/BuckIt/pkg/formatter"
	"github.com/Kush1612/BuckIt/pkg/output"
	"github.com/Kush1612/BuckIt/pkg/prompter"
	"github.com/Kush1612/BuckIt/pkg/service"
)

var (
	itemCategory  string
	itemDone      bool
	itemOpen      bool
	itemAscending bool

	newTitle       string
	newDescription string
	newCategory    string
	newSecret      bool
	newPhotos      []string

	photoNote string
)

var itemCmd = &cobra.Command{
	Use:     "item",
	Aliases: []string{"items"},
	Short:   "Bucket list item commands",
	Long:    "Add, browse and complete the items of the active list",
}

var itemLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "Show the items of the active list",
	RunE: func(cmd *cobra.Command, args []string) error {
		q := api.ItemQuery{Category: itemCategory, Ascending: itemAscending}
		switch {
		case itemDone && itemOpen:
			// both means no filter
		case itemDone:
			q.Completed = boolPtr(true)
		case itemOpen:
			q.Completed = boolPtr(false)
		}

		return withDeps(cmd, func(ctx context.Context, d *service.Deps) error {
			items, err := service.NewItemService(d).Items(ctx, q)
			if err != nil {
				return err
			}
			if len(items) == 0 && !output.IsJSON() {
				output.PrintInfo("Nothing here yet. Add something with 'buckit item add'")
				return nil
			}
			rows := make([][]string, 0, len(items))
			for _, it := range items {
				rows = append(rows, formatter.ItemRow(it))
			}
			return output.PrintList("Items", items, formatter.ItemHeaders, rows)
		})
	},
}

var itemAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Add an item to the active list",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := service.NewItemInput{
			Title:       newTitle,
			Description: newDescription,
			Category:    newCategory,
			Secret:      newSecret,
			Photos:      newPhotos,
		}
		if in.Title == "" && len(args) > 0 {
			in.Title = args[0]
		}
		if in.Title == "" {
			if err := askItem(&in); err != nil {
				return err
			}
		}

		return withDeps(cmd, func(ctx context.Context, d *service.Deps) error {
			res, err := service.NewItemService(d).Add(ctx, in)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.Print("", res)
			}
			for _, w := range res.Warnings {
				output.PrintWarning("%s", w)
			}
			output.PrintSuccess("Added %q (%s)", res.Item.Title, formatter.Plural(len(res.Item.Photos), "photo", "photos"))
			return nil
		})
	},
}

var itemShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an item with its photos",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd, func(ctx context.Context, d *service.Deps) error {
			detail, err := service.NewItemService(d).Show(ctx, args[0])
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.Print("", detail)
			}

			fields := []output.Field{
				{Key: "ID", Value: detail.ID},
				{Key: "Category", Value: formatter.Category(detail.Category)},
				{Key: "Done", Value: formatter.Check(detail.Completed)},
				{Key: "Added", Value: formatter.Ago(detail.CreatedAt)},
			}
			if detail.Description != "" {
				fields = append(fields, output.Field{Key: "Description", Value: detail.Description})
			}
			if detail.CompletedAt != nil {
				fields = append(fields, output.Field{Key: "Completed", Value: formatter.Ago(*detail.CompletedAt)})
			}
			if detail.Secret {
				fields = append(fields, output.Field{Key: "Secret", Value: "yes"})
			}
			if err := output.PrintRecord(detail.Title, fields, detail); err != nil {
				return err
			}

			if len(detail.ResolvedPhotos) == 0 {
				return nil
			}
			rows := make([][]string, 0, len(detail.ResolvedPhotos))
			for _, p := range detail.ResolvedPhotos {
				state := ""
				if p.Pending {
					state = "pending"
				}
				note := ""
				if m, ok := detail.MemoryFor(p.File); ok {
					note = formatter.Truncate(m.Note, 30)
				}
				rows = append(rows, []string{p.File, state, note, p.URI})
			}
			output.Println()
			return output.PrintList("Photos", detail.ResolvedPhotos, []string{"File", "State", "Note", "URI"}, rows)
		})
	},
}

var itemCompleteCmd = &cobra.Command{
	Use:     "complete <id>",
	Aliases: []string{"done"},
	Short:   "Mark an item as done",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd, func(ctx context.Context, d *service.Deps) error {
			item, err := service.NewItemService(d).Complete(ctx, args[0])
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.Print("", item)
			}
			output.PrintSuccess("Done: %s", item.Title)
			return nil
		})
	},
}

var itemPhotoCmd = &cobra.Command{
	Use:   "photo <id> <path>",
	Short: "Attach a photo to an item as a memory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd, func(ctx context.Context, d *service.Deps) error {
			res, err := service.NewItemService(d).AddPhoto(ctx, args[0], args[1], photoNote)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.Print("", res)
			}
			output.PrintSuccess("Added %s (%s) to %q", res.File, formatter.Bytes(res.Size), res.Item.Title)
			return nil
		})
	},
}

func init() {
	itemLsCmd.Flags().StringVarP(&itemCategory, "category", "c", "", "Filter by category: "+strings.Join(append([]string{api.CategoryAll}, api.Categories...), ", "))
	itemLsCmd.Flags().BoolVar(&itemDone, "done", false, "Only completed items")
	itemLsCmd.Flags().BoolVar(&itemOpen, "open", false, "Only items not done yet")
	itemLsCmd.Flags().BoolVar(&itemAscending, "asc", false, "Oldest first")

	itemAddCmd.Flags().StringVarP(&newTitle, "title", "t", "", "Item title")
	itemAddCmd.Flags().StringVarP(&newDescription, "description", "d", "", "Item description")
	itemAddCmd.Flags().StringVarP(&newCategory, "category", "c", "", "Category (default Travel)")
	itemAddCmd.Flags().BoolVar(&newSecret, "secret", false, "Mark the item as a secret")
	itemAddCmd.Flags().StringArrayVarP(&newPhotos, "photo", "p", nil, "Photo to upload (repeatable)")

	itemPhotoCmd.Flags().StringVarP(&photoNote, "note", "n", "", "A note to keep with the photo")

	itemCmd.AddCommand(itemLsCmd)
	itemCmd.AddCommand(itemAddCmd)
	itemCmd.AddCommand(itemShowCmd)
	itemCmd.AddCommand(itemCompleteCmd)
	itemCmd.AddCommand(itemPhotoCmd)
}

func boolPtr(b bool) *bool { return &b }

// askItem fills in an item interactively.
func askItem(in *service.NewItemInput) error {
	var err error
	if in.Title, err = prompter.PromptString("Title: "); err != nil {
		return err
	}
	if in.Description == "" {
		if in.Description, err = prompter.PromptMultilineString("Description", 10); err != nil {
			return err
		}
	}
	if in.Category == "" {
		i, err := prompter.PromptSelect("Category", api.Categories)
		if err != nil {
			return err
		}
		in.Category = api.Categories[i]
	}
	return nil
}
