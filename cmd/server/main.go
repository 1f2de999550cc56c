// Forsakenscan - Transaction fraud detection service
package main

import (
	"context"
	"os"

	"github.com/Diego-Anjos/Forsakenscan-Projeto/internal/config"
	"github.com/Diego-Anjos/Forsakenscan-Projeto/internal/logging"
	"github.com/Diego-Anjos/Forsakenscan-Projeto/internal/server"
)

// Build info - set by ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	logger := logging.New("info", "text")

	logger.Info("starting forsakenscan",
		"version", Version,
		"commit", Commit,
		"build_time", BuildTime,
	)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"env", cfg.Env,
		"fail_closed", cfg.FailClosed,
	)

	srv, err := server.New(cfg, server.WithLogger(logging.New(cfg.LogLevel, cfg.LogFormat)))
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
