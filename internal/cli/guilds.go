package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/redskie/bamaco/internal/factory"
	"github.com/redskie/bamaco/internal/model"
)

type guildFlags struct {
	name, tag, description, motto string
	founded, logo, leader         string
	members                       []string
}

func (g *guildFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&g.name, "name", "", "guild name")
	fs.StringVar(&g.tag, "tag", "", "short tag")
	fs.StringVar(&g.description, "description", "", "description")
	fs.StringVar(&g.motto, "motto", "", "motto")
	fs.StringVar(&g.founded, "founded", "", "founding date")
	fs.StringVar(&g.logo, "logo", "", "logo image URL")
	fs.StringSliceVar(&g.members, "members", nil, "member friend codes, comma separated")
}

func (g *guildFlags) patch(fs *pflag.FlagSet) model.GuildPatch {
	var patch model.GuildPatch
	str := func(flag string, v string) *string {
		if fs.Changed(flag) {
			return &v
		}
		return nil
	}
	patch.Name = str("name", g.name)
	patch.Tag = str("tag", g.tag)
	patch.Description = str("description", g.description)
	patch.Motto = str("motto", g.motto)
	patch.Founded = str("founded", g.founded)
	patch.Logo = str("logo", g.logo)
	if fs.Changed("members") {
		members := g.members
		patch.Members = &members
	}
	return patch
}

func newGuildsCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "guilds",
		Aliases: []string{"guild", "g"},
		Short:   "Browse and manage guilds",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List guilds",
		Args:  cobra.NoArgs,
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			list, err := app.Guilds.List(cmd.Context())
			if err != nil {
				return err
			}
			rt.out.Print(list)
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "search <term>",
		Short: "Search guilds by name or motto",
		Args:  cobra.ExactArgs(1),
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			list, err := app.Guilds.Search(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rt.out.Print(list)
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show a guild",
		Args:  cobra.ExactArgs(1),
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			g, err := app.Guilds.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rt.out.Print(g)
			return nil
		}),
	})

	var create guildFlags
	createCmd := &cobra.Command{
		Use:   "create <id>",
		Short: "Create a guild led by you",
		Args:  cobra.ExactArgs(1),
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			g, err := app.Guilds.Create(cmd.Context(), app.Auth.Actor(), &model.Guild{
				ID:          args[0],
				Name:        create.name,
				Tag:         create.tag,
				Description: create.description,
				Motto:       create.motto,
				Founded:     create.founded,
				Logo:        create.logo,
				Members:     create.members,
				Leader:      model.FriendCode(create.leader),
			})
			if err != nil {
				return err
			}
			rt.out.Print(g)
			return nil
		}),
	}
	create.bind(createCmd.Flags())
	createCmd.Flags().StringVar(&create.leader, "leader", "", "leader friend code (defaults to you)")
	cmd.AddCommand(createCmd)

	var update guildFlags
	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a guild you lead",
		Args:  cobra.ExactArgs(1),
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			patch := update.patch(cmd.Flags())
			if patch == (model.GuildPatch{}) {
				return errors.New("nothing to update: pass at least one field flag")
			}
			g, err := app.Guilds.Update(cmd.Context(), app.Auth.Actor(), args[0], patch)
			if err != nil {
				return err
			}
			rt.out.Print(g)
			return nil
		}),
	}
	update.bind(updateCmd.Flags())
	cmd.AddCommand(updateCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a guild you lead",
		Args:  cobra.ExactArgs(1),
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			if err := app.Guilds.Delete(cmd.Context(), app.Auth.Actor(), args[0]); err != nil {
				return err
			}
			rt.out.PrintMessage(fmt.Sprintf("Deleted guild %s", args[0]))
			return nil
		}),
	})

	return cmd
}
