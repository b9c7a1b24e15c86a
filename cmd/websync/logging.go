package main

import (
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/1120026847/web-sync/config"
	"github.com/lmittmann/tint"
)

func setupLogging(cfg *config.Config) {
	isProd := cfg.IsProduction()
	level := parseLevel(cfg.Log.Level)

	var h slog.Handler
	if isProd {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     level,
			AddSource: false,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					return slog.String("ts", a.Value.Time().UTC().Format(time.RFC3339Nano))
				}
				return a
			},
		})
	} else {
		h = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			AddSource:  true,
			TimeFormat: "15:04:05.000",
		})
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	log.SetFlags(0)
	log.SetOutput(
		slog.NewLogLogger(
			slog.Default().Handler(),
			slog.LevelInfo,
		).Writer(),
	)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
