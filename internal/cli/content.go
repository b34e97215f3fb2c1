package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/redskie/bamaco/internal/factory"
	"github.com/redskie/bamaco/internal/model"
	"github.com/redskie/bamaco/internal/services/content"
)

func newAchievementsCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "achievements",
		Aliases: []string{"achievement", "ach"},
		Short:   "Browse and manage achievements",
	}
	registry := func(app *factory.App) *content.Registry[*model.Achievement] { return app.Achievements }

	var available bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List achievements",
		Args:  cobra.NoArgs,
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			fetch := app.Achievements.List
			if available {
				fetch = app.Achievements.Available
			}
			items, err := fetch(cmd.Context())
			if err != nil {
				return err
			}
			rt.out.Print(items)
			return nil
		}),
	}
	list.Flags().BoolVar(&available, "available", false, "only show unassigned achievements")

	var (
		tmpl  model.Achievement
		count int
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an achievement template and copies of it (admin)",
		Args:  cobra.NoArgs,
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			t := tmpl
			items, err := app.Achievements.Create(cmd.Context(), app.Auth.Actor(), &t, count)
			if err != nil {
				return err
			}
			rt.out.Print(items)
			return nil
		}),
	}
	create.Flags().StringVar(&tmpl.Title, "title", "", "title")
	create.Flags().StringVar(&tmpl.Description, "description", "", "description")
	create.Flags().StringVar(&tmpl.Icon, "icon", "", "icon")
	create.Flags().StringVar(&tmpl.Category, "category", "", "category")
	create.Flags().StringVar(&tmpl.Rarity, "rarity", "", "rarity")
	create.Flags().IntVar(&tmpl.Points, "points", 0, "points")
	create.Flags().IntVar(&count, "count", 1, "total copies including the template")

	cmd.AddCommand(list, create)
	cmd.AddCommand(registryCmds(rt, "achievement", registry)...)
	return cmd
}

func newArticlesCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "articles",
		Aliases: []string{"article", "art"},
		Short:   "Browse and manage articles",
	}
	registry := func(app *factory.App) *content.Registry[*model.Article] { return app.Articles.Registry }

	var published, available bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List articles",
		Args:  cobra.NoArgs,
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			fetch := app.Articles.List
			switch {
			case published:
				fetch = app.Articles.Published
			case available:
				fetch = app.Articles.Available
			}
			items, err := fetch(cmd.Context())
			if err != nil {
				return err
			}
			rt.out.Print(items)
			return nil
		}),
	}
	list.Flags().BoolVar(&published, "published", false, "only show published articles, newest first")
	list.Flags().BoolVar(&available, "available", false, "only show unassigned articles")
	list.MarkFlagsMutuallyExclusive("published", "available")

	var (
		tmpl  model.Article
		count int
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an article template and copies of it (admin)",
		Args:  cobra.NoArgs,
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			t := tmpl
			items, err := app.Articles.Create(cmd.Context(), app.Auth.Actor(), &t, count)
			if err != nil {
				return err
			}
			rt.out.Print(items)
			return nil
		}),
	}
	create.Flags().StringVar(&tmpl.Title, "title", "", "title")
	create.Flags().StringVar(&tmpl.Excerpt, "excerpt", "", "excerpt")
	create.Flags().StringVar(&tmpl.Content, "content", "", "body text")
	create.Flags().StringVar(&tmpl.Category, "category", "", "category")
	create.Flags().StringVar(&tmpl.Difficulty, "difficulty", "", "difficulty")
	create.Flags().StringSliceVar(&tmpl.Tags, "tags", nil, "tags, comma separated")
	create.Flags().IntVar(&count, "count", 1, "total copies including the template")

	publish := &cobra.Command{
		Use:   "publish <id>",
		Short: "Publish an article (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			article, err := app.Articles.Publish(cmd.Context(), app.Auth.Actor(), args[0])
			if err != nil {
				return err
			}
			rt.out.Print(article)
			return nil
		}),
	}

	cmd.AddCommand(list, create, publish)
	cmd.AddCommand(registryCmds(rt, "article", registry)...)
	return cmd
}

// registryCmds are the subcommands both registries share
func registryCmds[T content.Item[T]](rt *runtime, noun string, registry func(*factory.App) *content.Registry[T]) []*cobra.Command {
	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one " + noun,
		Args:  cobra.ExactArgs(1),
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			item, err := registry(app).Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rt.out.Print(item)
			return nil
		}),
	}

	generate := &cobra.Command{
		Use:   "generate <template-id> <count>",
		Short: "Add copies of a " + noun + " template (admin)",
		Args:  cobra.ExactArgs(2),
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			var n int
			if _, err := fmt.Sscan(args[1], &n); err != nil || n < 1 {
				return fmt.Errorf("count must be a positive number, got %q", args[1])
			}
			items, err := registry(app).GenerateInstances(cmd.Context(), app.Auth.Actor(), args[0], n)
			if err != nil {
				return err
			}
			rt.out.Print(items)
			return nil
		}),
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a " + noun + " (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			if err := registry(app).Delete(cmd.Context(), app.Auth.Actor(), args[0]); err != nil {
				return err
			}
			rt.out.PrintMessage(fmt.Sprintf("Deleted %s %s", noun, args[0]))
			return nil
		}),
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show " + noun + " counts",
		Args:  cobra.NoArgs,
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			s, err := registry(app).Stats(cmd.Context())
			if err != nil {
				return err
			}
			rt.out.Print(s)
			return nil
		}),
	}

	return []*cobra.Command{show, generate, del, stats}
}
