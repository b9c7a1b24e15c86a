package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/1120026847/web-sync/config"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration and probe storage once",
	Long: `Load and validate the configuration, resolve the storage keys and
perform the same signed HEAD on the bucket that /readyz performs.
Exits non-zero when storage is unreachable or misconfigured.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Storage.Timeout)
	defer cancel()

	gateway, err := buildGateway(ctx, cfg, nil)
	if err != nil {
		return err
	}

	if err := gateway.Ping(ctx); err != nil {
		return fmt.Errorf("storage check failed: %w", err)
	}

	slog.Info("storage check passed", "bucket", cfg.Storage.Bucket)
	return nil
}
