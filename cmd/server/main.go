// Package main is the entry point for the hosted store server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/redskie/bamaco/internal/api"
	"github.com/redskie/bamaco/internal/config"
	"github.com/redskie/bamaco/internal/factory"
	"github.com/redskie/bamaco/internal/logging"
	redisstorage "github.com/redskie/bamaco/internal/storage/redis"
	"github.com/redskie/bamaco/pkg/errutil"
)

// Version information set at build time.
var version = "dev"

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd creates the server command
func NewRootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:     "bamaco-server",
		Short:   "Hosted store for the BAMACO community site",
		Version: version,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadServer(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVar(&configFile, "config", "", "config file path")
	config.BindServerFlags(cmd.Flags())
	return cmd
}

func run(ctx context.Context, cfg *config.Server) error {
	logger := logging.Setup("bamaco-server", version, cfg.LogFormat, nil)
	slog.SetDefault(logger)

	fcfg := factory.ServerConfig{
		StorageType: cfg.Store,
		APIKey:      cfg.APIKey,
		Metrics:     cfg.Metrics,
		Logger:      logger,
	}
	if cfg.Store == config.StoreRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		fcfg.RedisConfig = &redisCfg
	}
	if cfg.APIKey == "" {
		logger.Warn("no API key configured, store routes are open")
	}

	app, err := factory.NewServer(fcfg)
	if err != nil {
		errutil.LogError(logger, "failed to create application", err)
		return fmt.Errorf("create application: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			errutil.LogError(logger, "close failed", err)
		}
	}()

	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.Host
	serverConfig.Port = cfg.Port
	serverConfig.ReadTimeout = cfg.ReadTimeout
	serverConfig.WriteTimeout = cfg.WriteTimeout
	serverConfig.ShutdownTimeout = cfg.ShutdownTimeout

	// closing the change feed ends open event streams so shutdown can finish
	server := api.NewServer(app.Handler, serverConfig, logger, app.Changes.Close)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("store", cfg.Store))

	select {
	case err := <-errCh:
		if err != nil {
			errutil.LogError(logger, "server error", err)
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := server.Shutdown(context.Background()); err != nil {
			errutil.LogError(logger, "shutdown error", err)
			return err
		}
	}

	logger.Info("server stopped")
	return nil
}
