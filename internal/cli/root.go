// Package cli implements the bamaco command line client.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/redskie/bamaco/internal/config"
	"github.com/redskie/bamaco/internal/factory"
	"github.com/redskie/bamaco/internal/logging"
	"github.com/redskie/bamaco/internal/services/auth"
	"github.com/redskie/bamaco/internal/storage/remote"
	"github.com/redskie/bamaco/internal/xdg"
)

// Version is set at build time
var Version = "dev"

// AppFactory builds the client application for one invocation
type AppFactory func(ctx context.Context, cfg *config.Client, logger *slog.Logger) (*factory.App, error)

// Option configures the root command
type Option func(*runtime)

// WithAppFactory replaces how the application is built
func WithAppFactory(fn AppFactory) Option {
	return func(rt *runtime) {
		rt.newApp = fn
	}
}

// runtime is the state shared by the commands of one invocation
type runtime struct {
	configFile string
	cfg        *config.Client
	logger     *slog.Logger
	out        *Output
	newApp     AppFactory
	app        *factory.App
}

// App returns the application, building it on first use
func (rt *runtime) App(ctx context.Context) (*factory.App, error) {
	if rt.app != nil {
		return rt.app, nil
	}
	app, err := rt.newApp(ctx, rt.cfg, rt.logger)
	if err != nil {
		return nil, err
	}
	rt.app = app
	return app, nil
}

func (rt *runtime) close() {
	if rt.app == nil {
		return
	}
	if err := rt.app.Close(); err != nil {
		rt.logger.Warn("close failed", slog.String("error", err.Error()))
	}
	rt.app = nil
}

// withApp builds the application for a command and releases it afterwards
func (rt *runtime) withApp(fn func(cmd *cobra.Command, args []string, app *factory.App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := rt.App(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.close()
		return fn(cmd, args, app)
	}
}

// NewRootCmd creates the root command
func NewRootCmd(opts ...Option) *cobra.Command {
	rt := &runtime{newApp: defaultApp}
	for _, opt := range opts {
		opt(rt)
	}

	rootCmd := &cobra.Command{
		Use:   "bamaco",
		Short: "CLI for the BAMACO community site",
		Long: `bamaco manages your BAMACO profile and browses the community:
players, guilds, achievements, articles and the play queue.

Identities live on the hosted store. When it cannot be reached, accounts
are kept on this device instead (local-only mode).`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadClient(rt.configFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			rt.cfg = cfg

			level := slog.LevelWarn
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			rt.logger = logging.SetupLevel("bamaco", Version, cfg.LogFormat, level, cmd.ErrOrStderr())
			rt.out = NewOutput(cfg.Output, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&rt.configFile, "config", xdg.ConfigFile(), "config file path")
	config.BindClientFlags(rootCmd.PersistentFlags())

	// Add subcommands
	rootCmd.AddCommand(newLoginCmd(rt))
	rootCmd.AddCommand(newRegisterCmd(rt))
	rootCmd.AddCommand(newLogoutCmd(rt))
	rootCmd.AddCommand(newGuestCmd(rt))
	rootCmd.AddCommand(newWhoamiCmd(rt))
	rootCmd.AddCommand(newSetPasswordCmd(rt))
	rootCmd.AddCommand(newProfileCmd(rt))
	rootCmd.AddCommand(newWatchCmd(rt))
	rootCmd.AddCommand(newPlayersCmd(rt))
	rootCmd.AddCommand(newGuildsCmd(rt))
	rootCmd.AddCommand(newAchievementsCmd(rt))
	rootCmd.AddCommand(newArticlesCmd(rt))
	rootCmd.AddCommand(newQueueCmd(rt))
	rootCmd.AddCommand(newReportCmd(rt))
	rootCmd.AddCommand(newEventsCmd(rt))
	rootCmd.AddCommand(newHealthCmd(rt))

	return rootCmd
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		NewOutput(outputFlag(cmd), os.Stdout, os.Stderr).PrintError(err)
		stop()
		os.Exit(1)
	}
}

// outputFlag reads --output when config loading never ran
func outputFlag(cmd *cobra.Command) string {
	format, err := cmd.PersistentFlags().GetString("output")
	if err != nil {
		return config.OutputText
	}
	return format
}

func defaultApp(ctx context.Context, cfg *config.Client, logger *slog.Logger) (*factory.App, error) {
	rc := remote.DefaultConfig()
	rc.BaseURL = cfg.ServerURL
	rc.APIKey = cfg.APIKey
	rc.Timeout = cfg.Timeout

	return factory.New(ctx, factory.Config{
		Mode:             cfg.Mode,
		Remote:           rc,
		RedisURL:         cfg.RedisURL,
		LocalStorePath:   cfg.LocalStore,
		SessionStorePath: cfg.SessionStore,
		IdentityDB:       cfg.IdentityDB,
		CacheTTL:         cfg.CacheTTL,
		AuthConfig: auth.Config{
			MaxFailedAttempts: cfg.MaxFailedAttempts,
			LockoutDuration:   cfg.LockoutDuration,
		},
		Logger: logger,
	})
}
