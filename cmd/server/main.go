// Command server serves the stored scans as a read-only JSON API.
//
// Configuration comes from the environment or a .env file (see
// internal/config). The server never calls Steam, so STEAM_API_KEY is not
// required here.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/StarterX4/steamlinuxchecker/internal/config"
	"github.com/StarterX4/steamlinuxchecker/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := cfg.Logger()

	// mkdir -p for the database directory.
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", dbDir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	srv, err := server.New(server.Config{
		Port:   cfg.Port,
		DBPath: cfg.DBPath,
	}, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT or SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
