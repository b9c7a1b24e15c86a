package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	websync "github.com/1120026847/web-sync"
	"github.com/1120026847/web-sync/config"
	websynchttp "github.com/1120026847/web-sync/http"
	"github.com/1120026847/web-sync/metrics"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the web-sync gateway: the notepad and inbox UI, the /api routes and the health endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 8080, "HTTP server port (env: WEBSYNC_SERVER_PORT)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	handlerConfig := websynchttp.HandlerConfig{
		MaxTextBytes: cfg.Notepad.MaxBytes,
		CORS:         cfg.Server.CORS,
	}

	var observer websync.RelayObserver
	if cfg.Metrics.Enabled {
		m := metrics.New()
		handlerConfig.Metrics = m
		observer = m
	}

	gateway, err := buildGateway(ctx, cfg, observer)
	if err != nil {
		return err
	}

	handler := websynchttp.NewHandler(&handlerConfig, gateway)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
		case <-ctx.Done():
			return
		}

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("starting server",
		"addr", addr,
		"notepad_key", cfg.Layout.NotepadKey,
		"upload_prefix", cfg.Layout.UploadPrefix,
		"metrics", cfg.Metrics.Enabled,
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
