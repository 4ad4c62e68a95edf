// Command server runs the development data store: the HTTP API and change
// feed that the board client synchronizes against.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jeyaram1023/doubt-wala/internal/config"
	"github.com/jeyaram1023/doubt-wala/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	cfg := config.Load()
	if cfg.JWTSecret == "" {
		// Fixed fallback so the dev store runs out of the box. Anything
		// reachable from another machine must set JWT_SECRET.
		cfg.JWTSecret = "dev-only-insecure-secret"
		logger.Warn("JWT_SECRET not set, using the insecure dev default")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		logger.Error("creating database directory failed",
			slog.String("dir", filepath.Dir(cfg.DBPath)),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("creating server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
