package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/redskie/bamaco/internal/factory"
	"github.com/redskie/bamaco/internal/services/auth"
)

func newLoginCmd(rt *runtime) *cobra.Command {
	var (
		pw       string
		remember bool
	)
	cmd := &cobra.Command{
		Use:   "login <friend-code>",
		Short: "Log in with your friend code",
		Long: `Log in with your friend code and password. Dashes and spaces in the
friend code are ignored. Without --password the first line of stdin is used.`,
		Args: cobra.ExactArgs(1),
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			secret, err := readPassword(cmd, pw)
			if err != nil {
				return err
			}
			identity, err := app.Auth.Login(cmd.Context(), args[0], secret, remember)
			if err != nil {
				return err
			}
			rt.out.PrintMessage(fmt.Sprintf("Logged in as %s (%s)", identity.IGN, identity.FriendCode))
			return nil
		}),
	}
	cmd.Flags().StringVarP(&pw, "password", "p", "", "password (read from stdin when empty)")
	cmd.Flags().BoolVarP(&remember, "remember", "r", false, "keep the session for 30 days instead of 24 hours")
	return cmd
}

func newRegisterCmd(rt *runtime) *cobra.Command {
	var (
		pw      string
		profile auth.ExternalProfile
	)
	cmd := &cobra.Command{
		Use:   "register <friend-code>",
		Short: "Create a profile and log in",
		Args:  cobra.ExactArgs(1),
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			secret, err := readPassword(cmd, pw)
			if err != nil {
				return err
			}
			identity, err := app.Auth.Register(cmd.Context(), args[0], secret, profile)
			if err != nil {
				return err
			}
			rt.out.PrintMessage(fmt.Sprintf("Registered %s (%s)", identity.IGN, identity.FriendCode))
			return nil
		}),
	}
	cmd.Flags().StringVarP(&pw, "password", "p", "", "password (read from stdin when empty)")
	cmd.Flags().StringVar(&profile.IGN, "ign", "", "in-game name")
	cmd.Flags().IntVar(&profile.Rating, "rating", 0, "current rating")
	cmd.Flags().StringVar(&profile.Title, "title", "", "title")
	cmd.Flags().StringVar(&profile.Trophy, "trophy", "", "trophy")
	cmd.Flags().StringVar(&profile.AvatarImage, "avatar", "", "avatar image URL")
	return cmd
}

func newSetPasswordCmd(rt *runtime) *cobra.Command {
	var pw string
	cmd := &cobra.Command{
		Use:   "set-password <friend-code>",
		Short: "Set a password on a profile that has none",
		Args:  cobra.ExactArgs(1),
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			secret, err := readPassword(cmd, pw)
			if err != nil {
				return err
			}
			if err := app.Auth.SetPassword(cmd.Context(), args[0], secret); err != nil {
				return err
			}
			rt.out.PrintMessage("Password set")
			return nil
		}),
	}
	cmd.Flags().StringVarP(&pw, "password", "p", "", "new password (read from stdin when empty)")
	return cmd
}

func newLogoutCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			if err := app.Auth.Logout(); err != nil {
				return err
			}
			rt.out.PrintMessage("Logged out")
			return nil
		}),
	}
}

func newGuestCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "guest",
		Short: "Browse without logging in",
		Args:  cobra.NoArgs,
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			if err := app.Auth.ContinueAsGuest(); err != nil {
				return err
			}
			rt.out.PrintMessage("Continuing as guest")
			return nil
		}),
	}
}

func newWhoamiCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the login state",
		Args:  cobra.NoArgs,
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			rt.out.Print(statusOf(app))
			return nil
		}),
	}
}

func statusOf(app *factory.App) StatusView {
	user := app.Auth.User()
	return StatusView{
		State:       app.Auth.Current().String(),
		IsLoggedIn:  user != nil,
		User:        user,
		IsAdmin:     user != nil && user.IsAdmin,
		Guest:       app.Sessions.IsGuest(),
		Mode:        string(app.Auth.Mode()),
		PromptLogin: app.Auth.ShouldPromptLogin(),
	}
}

func newWatchCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow login and logout from other terminals",
		Long: `Print the login state every time it changes, including logins and
logouts made by other bamaco processes sharing the same local store.`,
		Args: cobra.NoArgs,
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			changes, unsubscribe := app.Auth.Subscribe("cli-watch")
			defer unsubscribe()

			rt.out.Print(statusOf(app))
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case change, ok := <-changes:
					if !ok {
						return nil
					}
					rt.out.Print(StatusView{
						State:      change.State.String(),
						IsLoggedIn: change.IsLoggedIn,
						User:       change.User,
						IsAdmin:    change.IsAdmin,
						Guest:      app.Sessions.IsGuest(),
						Mode:       string(app.Auth.Mode()),
					})
				}
			}
		}),
	}
}
