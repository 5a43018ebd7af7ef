// Package main is the entry point for the SolWinner giveaway server.
//
// main only reads configuration, builds the logger and hands both to
// internal/server. All behaviour lives in the internal packages.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sakif/solwinner/internal/config"
	"github.com/sakif/solwinner/internal/server"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Configuration errors are reported before the configured log level is
	// known, so a default logger is used for them.
	cfg, err := config.Load(ctx)
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	// Ensure the database directory exists (like `mkdir -p`).
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	srv, err := server.New(server.Config{
		Port:                cfg.Port,
		DBPath:              cfg.DBPath,
		DiscordClientID:     cfg.DiscordClientID,
		DiscordClientSecret: cfg.DiscordClientSecret,
		DiscordRedirectURI:  cfg.DiscordRedirectURI,
		OAuthTimeout:        cfg.OAuthTimeout,
		AdminSecret:         cfg.AdminSecret,
		AdminBcryptCost:     cfg.AdminBcryptCost,
		SessionSecret:       cfg.SessionSecret,
		CookieSecure:        cfg.CookieSecure,
	}, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until ctx is cancelled by Ctrl+C or SIGTERM.
	if err := srv.Start(ctx); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
