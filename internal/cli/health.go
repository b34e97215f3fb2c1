package cli

import (
	"github.com/spf13/cobra"

	"github.com/redskie/bamaco/internal/storage/remote"
)

func newHealthCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rc := remote.DefaultConfig()
			rc.BaseURL = rt.cfg.ServerURL
			rc.APIKey = rt.cfg.APIKey
			rc.Timeout = rt.cfg.Timeout

			result := HealthResult{Status: "ok", Server: rt.cfg.ServerURL}
			if err := remote.New(rc).Ping(cmd.Context()); err != nil {
				rt.logger.Debug("health check failed", "error", err)
				result.Status = "unavailable"
				rt.out.Print(result)
				return remote.ErrUnavailable
			}
			rt.out.Print(result)
			return nil
		},
	}
}
