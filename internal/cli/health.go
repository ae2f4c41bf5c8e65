package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

const healthPollInterval = 250 * time.Millisecond

func newHealthCmd() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Long: `Check server health.

With --wait, polls until the server answers or the duration passes, which
is useful in scripts that start the server in the background.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := checkHealth(cmd.Context(), wait)
			if err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 0, "Keep polling for up to this long")
	return cmd
}

func checkHealth(ctx context.Context, wait time.Duration) (HealthResult, error) {
	var result HealthResult
	err := client.Get(ctx, "/api/v1/health", &result)
	if err == nil || wait <= 0 {
		return result, err
	}

	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	ticker := time.NewTicker(healthPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return result, fmt.Errorf("server not healthy after %s: %w", wait, err)
		case <-ticker.C:
			if err = client.Get(ctx, "/api/v1/health", &result); err == nil {
				return result, nil
			}
		}
	}
}
