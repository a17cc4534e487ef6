package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Kush1612/BuckIt/pkg/api"
	"github.com/Kush1612/BuckIt/pkg/formatter"
	"github.com/Kush1612/BuckIt/pkg/output"
	"github.com/Kush1612/BuckIt/pkg/prompter"
	"github.com/Kush1612/BuckIt/pkg/service"
)

var purgeYes bool

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"lists"},
	Short:   "Shared list commands",
	Long:    "Create, join and switch between shared bucket lists",
}

var listLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "Show your lists",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd, func(ctx context.Context, d *service.Deps) error {
			lists, err := service.NewListService(d).Lists(ctx)
			if err != nil {
				return err
			}
			if len(lists) == 0 && !output.IsJSON() {
				output.PrintInfo("No lists yet. Create one with 'buckit list create <name>'")
				return nil
			}

			rows := make([][]string, 0, len(lists))
			for _, l := range lists {
				mark := ""
				if l.Active {
					mark = "*"
				}
				role := "member"
				if l.Owned {
					role = "owner"
				}
				rows = append(rows, []string{mark, l.Name, l.InviteCode, role, formatter.Ago(l.CreatedAt), l.ID})
			}
			return output.PrintList("Lists", lists, []string{"", "Name", "Code", "Role", "Created", "ID"}, rows)
		})
	},
}

var listCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a list and make it active",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd, func(ctx context.Context, d *service.Deps) error {
			l, err := service.NewListService(d).Create(ctx, args[0])
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.Print("", l)
			}
			output.PrintSuccess("Created %q. Invite code: %s", l.Name, l.InviteCode)
			return nil
		})
	},
}

var listJoinCmd = &cobra.Command{
	Use:   "join <code>",
	Short: "Join a list with its invite code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd, func(ctx context.Context, d *service.Deps) error {
			l, err := service.NewListService(d).Join(ctx, args[0])
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.Print("", l)
			}
			output.PrintSuccess("Joined %q", l.Name)
			return nil
		})
	},
}

var listUseCmd = &cobra.Command{
	Use:   "use <name|id|link>",
	Short: "Switch the active list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd, func(ctx context.Context, d *service.Deps) error {
			l, err := service.NewListService(d).Use(ctx, args[0])
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.Print("", l)
			}
			output.PrintSuccess("Now using %q", l.Name)
			return nil
		})
	},
}

var listShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the active list",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd, func(ctx context.Context, d *service.Deps) error {
			l, err := service.NewListService(d).Active(ctx)
			if err != nil {
				return err
			}
			return printList(l)
		})
	},
}

var listLeaveCmd = &cobra.Command{
	Use:   "leave <name|id>",
	Short: "Leave a list, deleting it if you own it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd, func(ctx context.Context, d *service.Deps) error {
			res, err := service.NewListService(d).Leave(ctx, args[0])
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.Print("", res)
			}
			if res.Deleted {
				output.PrintSuccess("Deleted %q", res.List.Name)
			} else {
				output.PrintSuccess("Left %q", res.List.Name)
			}
			return nil
		})
	},
}

var listInviteCmd = &cobra.Command{
	Use:   "invite [name|id]",
	Short: "Show the invite code and link of a list",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref := ""
		if len(args) > 0 {
			ref = args[0]
		}
		return withDeps(cmd, func(ctx context.Context, d *service.Deps) error {
			l, link, err := service.NewListService(d).Invite(ctx, ref)
			if err != nil {
				return err
			}
			return output.PrintRecord("Invite to "+l.Name, []output.Field{
				{Key: "Code", Value: l.InviteCode},
				{Key: "Link", Value: link},
			}, map[string]string{"list_id": l.ID, "invite_code": l.InviteCode, "link": link})
		})
	},
}

var listPurgeCmd = &cobra.Command{
	Use:   "purge <name|id>",
	Short: "Delete a list with all its items and photos",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !purgeYes {
			ok, err := prompter.PromptConfirm("Delete " + args[0] + " with all its items and photos?")
			if err != nil {
				return err
			}
			if !ok {
				output.PrintInfo("Cancelled")
				return nil
			}
		}
		return withDeps(cmd, func(ctx context.Context, d *service.Deps) error {
			res, err := service.NewListService(d).Purge(ctx, args[0])
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.Print("", res)
			}
			output.PrintSuccess("Purged list %s (%s removed)", res.ListID, formatter.Plural(res.Files, "file", "files"))
			return nil
		})
	},
}

func init() {
	listPurgeCmd.Flags().BoolVarP(&purgeYes, "yes", "y", false, "Skip the confirmation prompt")

	listCmd.AddCommand(listLsCmd)
	listCmd.AddCommand(listCreateCmd)
	listCmd.AddCommand(listJoinCmd)
	listCmd.AddCommand(listUseCmd)
	listCmd.AddCommand(listShowCmd)
	listCmd.AddCommand(listLeaveCmd)
	listCmd.AddCommand(listInviteCmd)
	listCmd.AddCommand(listPurgeCmd)
}

func printList(l *api.List) error {
	return output.PrintRecord(l.Name, []output.Field{
		{Key: "ID", Value: l.ID},
		{Key: "Owner", Value: l.Owner},
		{Key: "Invite code", Value: l.InviteCode},
		{Key: "Link", Value: service.InviteLink(*l)},
		{Key: "Created", Value: formatter.Ago(l.CreatedAt)},
	}, l)
}
