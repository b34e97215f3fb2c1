package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/redskie/bamaco/internal/factory"
	"github.com/redskie/bamaco/internal/model"
	"github.com/redskie/bamaco/internal/services/authz"
	"github.com/redskie/bamaco/internal/services/players"
)

func newPlayersCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "players",
		Aliases: []string{"player", "p"},
		Short:   "Browse and manage player profiles",
	}

	cmd.AddCommand(
		newPlayersListCmd(rt),
		newPlayersSearchCmd(rt),
		newPlayersShowCmd(rt),
		newPlayersStatsCmd(rt),
		newPlayersGuildCmd(rt),
		newPlayersCreateCmd(rt),
		newPlayersUpdateCmd(rt),
		newPlayersDeleteCmd(rt),
		newPlayersHeldCmd(rt, "achievements"),
		newPlayersHeldCmd(rt, "articles"),
		newPlayersAssignCmd(rt, "assign-achievement", "Give a player an achievement", (*players.Service).AssignAchievement),
		newPlayersAssignCmd(rt, "remove-achievement", "Take an achievement from a player", (*players.Service).RemoveAchievement),
		newPlayersAssignCmd(rt, "assign-article", "Credit a player with an article", (*players.Service).AssignArticle),
		newPlayersAssignCmd(rt, "remove-article", "Remove an article from a player", (*players.Service).RemoveArticle),
	)
	return cmd
}

func newPlayersListCmd(rt *runtime) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List public players by rating",
		Args:  cobra.NoArgs,
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			list, err := app.Players.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			rt.out.Print(list)
			return nil
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most this many players (0 for all)")
	return cmd
}

func newPlayersSearchCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "search <term>",
		Short: "Search players by IGN, name or nickname",
		Args:  cobra.ExactArgs(1),
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			list, err := app.Players.Search(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rt.out.Print(list)
			return nil
		}),
	}
}

func newPlayersShowCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show <friend-code>",
		Short: "Show a player profile",
		Args:  cobra.ExactArgs(1),
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			p, err := app.Players.Get(cmd.Context(), model.NormalizeFriendCode(args[0]))
			if err != nil {
				return err
			}
			rt.out.Print(p)
			return nil
		}),
	}
}

func newPlayersStatsCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show community statistics",
		Args:  cobra.NoArgs,
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			stats, err := app.Players.Stats(cmd.Context())
			if err != nil {
				return err
			}
			rt.out.Print(stats)
			return nil
		}),
	}
}

func newPlayersGuildCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "guild <guild-id>",
		Short: "List the members of a guild",
		Args:  cobra.ExactArgs(1),
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			list, err := app.Players.ByGuild(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rt.out.Print(list)
			return nil
		}),
	}
}

func newPlayersCreateCmd(rt *runtime) *cobra.Command {
	var flags profileFlags
	cmd := &cobra.Command{
		Use:   "create <friend-code>",
		Short: "Create a profile for a player (admin)",
		Long: `Create a profile on a player's behalf. The profile has no password; the
printed edit key lets the player claim and edit it.`,
		Args: cobra.ExactArgs(1),
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			p, err := app.Players.Create(cmd.Context(), app.Auth.Actor(), flags.identity(model.FriendCode(args[0])))
			if err != nil {
				return err
			}
			rt.out.Print(p.Public())
			rt.out.PrintMessage(fmt.Sprintf("Edit key: %s", p.EditKey))
			return nil
		}),
	}
	flags.bind(cmd.Flags())
	return cmd
}

func newPlayersUpdateCmd(rt *runtime) *cobra.Command {
	var (
		flags   profileFlags
		editKey string
	)
	cmd := &cobra.Command{
		Use:   "update <friend-code>",
		Short: "Update a player profile",
		Long: `Update a player profile. Admins may edit any profile; everyone else needs
to own it or hold its edit key. The edit key saved on this device is used
when --edit-key is not given.`,
		Args: cobra.ExactArgs(1),
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			fc := model.NormalizeFriendCode(args[0])
			key := editKey
			if key == "" {
				key = app.Sessions.EditKeyFor(fc)
			}
			p, err := app.Players.Update(cmd.Context(), app.Auth.Actor(), fc, flags.patch(cmd.Flags()), key)
			if err != nil {
				return err
			}
			rt.out.Print(p)
			return nil
		}),
	}
	flags.bind(cmd.Flags())
	cmd.Flags().StringVar(&editKey, "edit-key", "", "edit key of the profile")
	return cmd
}

func newPlayersDeleteCmd(rt *runtime) *cobra.Command {
	var editKey string
	cmd := &cobra.Command{
		Use:   "delete <friend-code>",
		Short: "Delete a player profile",
		Args:  cobra.ExactArgs(1),
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			fc := model.NormalizeFriendCode(args[0])
			key := editKey
			if key == "" {
				key = app.Sessions.EditKeyFor(fc)
			}
			if err := app.Players.Delete(cmd.Context(), fc, key); err != nil {
				return err
			}
			rt.out.PrintMessage(fmt.Sprintf("Deleted %s", fc))
			return nil
		}),
	}
	cmd.Flags().StringVar(&editKey, "edit-key", "", "edit key of the profile")
	return cmd
}

func newPlayersHeldCmd(rt *runtime, kind string) *cobra.Command {
	return &cobra.Command{
		Use:   kind + " <friend-code>",
		Short: "List the " + kind + " a player holds",
		Args:  cobra.ExactArgs(1),
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			fc := model.NormalizeFriendCode(args[0])
			if kind == "articles" {
				list, err := app.Players.Articles(cmd.Context(), fc)
				if err != nil {
					return err
				}
				rt.out.Print(list)
				return nil
			}
			list, err := app.Players.Achievements(cmd.Context(), fc)
			if err != nil {
				return err
			}
			rt.out.Print(list)
			return nil
		}),
	}
}

type assignFunc func(s *players.Service, ctx context.Context, actor *authz.Actor, fc model.FriendCode, id string) error

func newPlayersAssignCmd(rt *runtime, use, short string, fn assignFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <friend-code> <id>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			fc := model.NormalizeFriendCode(args[0])
			if err := fn(app.Players, cmd.Context(), app.Auth.Actor(), fc, args[1]); err != nil {
				return err
			}
			rt.out.PrintMessage("Done")
			return nil
		}),
	}
}
