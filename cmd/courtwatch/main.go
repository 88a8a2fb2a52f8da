package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/kirinyoku/courtside/internal/app"
	"github.com/kirinyoku/courtside/internal/config"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.New()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := app.RunWatcher(context.Background(), cfg, logger, os.Stdout); err != nil {
		logger.Error("watcher finished with error", "error", err)
		os.Exit(1)
	}
}
