package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Kush1612/BuckIt/pkg/output"
	"github.com/Kush1612/BuckIt/pkg/prompter"
	"github.com/Kush1612/BuckIt/pkg/service"
)

var (
	profileName     string
	profileUsername string
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "User profile commands",
	Long:  "View and edit the profile kept on this device",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show your profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd, func(ctx context.Context, d *service.Deps) error {
			view, err := service.NewProfileService(d).Show(ctx)
			if err != nil {
				return err
			}
			return printProfile(view)
		})
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change your display name or username",
	Long:  "Change your display name or username. Without flags you are prompted for both.",
	RunE: func(cmd *cobra.Command, args []string) error {
		var u service.ProfileUpdate
		if cmd.Flags().Changed("name") {
			u.DisplayName = &profileName
		}
		if cmd.Flags().Changed("username") {
			u.Username = &profileUsername
		}
		return withDeps(cmd, func(ctx context.Context, d *service.Deps) error {
			svc := service.NewProfileService(d)
			if u.DisplayName == nil && u.Username == nil {
				current, err := svc.Show(ctx)
				if err != nil {
					return err
				}
				if u, err = askProfile(current); err != nil {
					return err
				}
			}
			view, err := svc.Set(ctx, u)
			if err != nil {
				return err
			}
			return printProfile(view)
		})
	},
}

var profileAvatarCmd = &cobra.Command{
	Use:   "avatar <path>",
	Short: "Upload a new avatar",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd, func(ctx context.Context, d *service.Deps) error {
			res, err := service.NewProfileService(d).Avatar(ctx, args[0])
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.Print("", res)
			}
			if res.Warning != "" {
				output.PrintWarning("%s", res.Warning)
			}
			output.PrintSuccess("Avatar updated")
			return nil
		})
	},
}

func init() {
	profileSetCmd.Flags().StringVar(&profileName, "name", "", "Display name")
	profileSetCmd.Flags().StringVar(&profileUsername, "username", "", "Username, without spaces")

	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileSetCmd)
	profileCmd.AddCommand(profileAvatarCmd)
}

// askProfile prompts for each field, keeping the current value on an empty answer.
func askProfile(current *service.ProfileView) (service.ProfileUpdate, error) {
	name, err := prompter.PromptDefault("Display name: ", current.DisplayName)
	if err != nil {
		return service.ProfileUpdate{}, err
	}
	username, err := prompter.PromptDefault("Username: ", current.Username)
	if err != nil {
		return service.ProfileUpdate{}, err
	}
	return service.ProfileUpdate{DisplayName: &name, Username: &username}, nil
}

func printProfile(v *service.ProfileView) error {
	username := "-"
	if v.Username != "" {
		username = "@" + v.Username
	}
	avatar := v.AvatarURI
	if avatar == "" {
		avatar = "-"
	}
	return output.PrintRecord("Profile", []output.Field{
		{Key: "Name", Value: v.DisplayName},
		{Key: "Username", Value: username},
		{Key: "Email", Value: v.Email},
		{Key: "Avatar", Value: avatar},
	}, v)
}
