package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	websync "github.com/1120026847/web-sync"
	"github.com/1120026847/web-sync/config"
	"github.com/1120026847/web-sync/keybackend"
)

// buildGateway wires the signer, bucket and gateway described by cfg.
// Unusable credentials are logged, not returned: the gateway still starts
// and every storage call fails with a configuration error.
func buildGateway(ctx context.Context, cfg *config.Config, observer websync.RelayObserver) (*websync.Gateway, error) {
	bucket, err := websync.NewBucket(cfg.BucketConfig())
	if err != nil {
		return nil, fmt.Errorf("bucket: %w", err)
	}

	signer := websync.NewSigner(websync.SignerConfig{
		Credentials: keybackend.NewProvider(ctx, cfg.Storage.Keys),
		Region:      cfg.Storage.Region,
		Client:      &http.Client{Timeout: cfg.Storage.Timeout},
		Observer:    observer,
	})

	if err := signer.Check(ctx); err != nil {
		slog.Warn("storage credentials unavailable, storage calls will fail",
			"source", cfg.Storage.Keys.Source(),
			"err", err,
		)
	}

	slog.Info("storage configured",
		"bucket", cfg.Storage.Bucket,
		"region", cfg.Storage.Region,
		"endpoint", cfg.Storage.Endpoint,
		"path_style", cfg.Storage.PathStyle,
		"keys", cfg.Storage.Keys.Source(),
	)

	return websync.NewGateway(signer, bucket, cfg.GatewayConfig()), nil
}
