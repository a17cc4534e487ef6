package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Kush1612/BuckIt/pkg/formatter"
	"github.com/Kush1612/BuckIt/pkg/output"
	"github.com/Kush1612/BuckIt/pkg/prompter"
	"github.com/Kush1612/BuckIt/pkg/service"
)

var (
	authEmail    string
	authPassword string
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authentication commands",
	Long:  "Sign up, sign in and manage your BuckIt session",
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create a new account",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, password, err := askCredentials()
		if err != nil {
			return err
		}
		return withDeps(cmd, func(ctx context.Context, d *service.Deps) error {
			res, err := service.NewAuthService(d).SignUp(ctx, email, password)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.Print("", res)
			}
			if res.SignedIn {
				output.PrintSuccess("Account created. Signed in as %s", res.User.Email)
			} else {
				output.PrintInfo("Account created. Check %s for a confirmation link, then run 'buckit auth login'", res.User.Email)
			}
			return nil
		})
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with email and password",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, password, err := askCredentials()
		if err != nil {
			return err
		}
		return withDeps(cmd, func(ctx context.Context, d *service.Deps) error {
			user, err := service.NewAuthService(d).Login(ctx, email, password)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.Print("", user)
			}
			output.PrintSuccess("Signed in as %s", user.Email)
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the local session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd, func(ctx context.Context, d *service.Deps) error {
			if err := service.NewAuthService(d).Logout(ctx); err != nil {
				return err
			}
			output.PrintSuccess("Signed out")
			return nil
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:     "whoami",
	Aliases: []string{"me"},
	Short:   "Display the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd, func(ctx context.Context, d *service.Deps) error {
			user, err := service.NewAuthService(d).WhoAmI(ctx)
			if err != nil {
				return err
			}
			fields := []output.Field{
				{Key: "ID", Value: user.ID},
				{Key: "Email", Value: user.Email},
			}
			if user.LastSignInAt != nil {
				fields = append(fields, output.Field{Key: "Last sign-in", Value: formatter.Ago(*user.LastSignInAt)})
			}
			return output.PrintRecord("Signed in", fields, user)
		})
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh the access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd, func(ctx context.Context, d *service.Deps) error {
			creds, err := service.NewAuthService(d).Refresh(ctx)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.Print("", map[string]interface{}{"email": creds.Email, "expires_at": creds.ExpiresAt})
			}
			output.PrintSuccess("Session refreshed, expires %s", formatter.Ago(creds.ExpiresAt))
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{signupCmd, loginCmd} {
		c.Flags().StringVarP(&authEmail, "email", "e", "", "Account email (prompted when omitted)")
		c.Flags().StringVar(&authPassword, "password", "", "Account password (prompted when omitted)")
	}

	authCmd.AddCommand(signupCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(whoamiCmd)
	authCmd.AddCommand(refreshCmd)
}

func askCredentials() (string, string, error) {
	email := authEmail
	if email == "" {
		var err error
		if email, err = prompter.PromptString("Email: "); err != nil {
			return "", "", err
		}
	}
	password := authPassword
	if password == "" {
		var err error
		if password, err = prompter.PromptPassword("Password: "); err != nil {
			return "", "", err
		}
	}
	return email, password, nil
}
