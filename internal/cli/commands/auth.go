package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"rentals/internal/core"
)

func LoginCmd(app *App) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and keep the session for later commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			res := app.auth.Login(cmd.Context(), app.handle(), email, password)
			if !res.OK {
				return errors.New(res.Message)
			}
			printf(cmd, "Logged in as %s\n", res.User.DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func RegisterCmd(app *App) *cobra.Command {
	var p core.Profile
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			res := app.auth.Register(cmd.Context(), app.handle(), p)
			if !res.OK {
				return errors.New(res.Message)
			}
			printf(cmd, "Welcome, %s\n", res.User.DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVar(&p.Email, "email", "", "account email")
	cmd.Flags().StringVar(&p.Password, "password", "", "account password")
	cmd.Flags().StringVar(&p.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&p.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&p.PhoneNumber, "phone", "", "phone number")
	return cmd
}

func LogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			res := app.auth.Logout(cmd.Context(), app.handle())
			if !res.OK {
				return errors.New(res.Message)
			}
			printf(cmd, "Logged out\n")
			return nil
		},
	}
}

func WhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess := app.handle().Session(cmd.Context())
			if !sess.Present() {
				return ErrNotLoggedIn
			}
			printf(cmd, "%s <%s> (id %s)\n", sess.User.DisplayName(), sess.User.Email, sess.User.ID)
			return nil
		},
	}
}
