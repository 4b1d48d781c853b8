package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"lexhub/database"
	"lexhub/internal/alert"
	"lexhub/internal/config"
	"lexhub/internal/httpapi/models"
	"lexhub/internal/notification"
	"lexhub/internal/storage"
	"lexhub/internal/tribunal"
)

// Standalone runner for the tribunal polling loop, useful for running
// synchronization separately from the API server.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Warn("backend unavailable, running local-only", "error", err)
		db = nil
	}

	local, err := storage.NewLocalStore(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		logger.Warn("local cache unavailable", "error", err)
		local = nil
	} else {
		defer local.Close()
	}

	notifRepo := storage.NewFallbackNotifications(storage.NewRemoteNotifications(db), local, logger)
	settingsRepo := storage.NewFallbackSettings(storage.NewRemoteSettings(db), local, logger)
	updatesRepo := storage.NewFallbackUpdates(storage.NewRemoteUpdates(db), local, logger)

	var surface alert.Surface = alert.NoopSurface{}
	if cfg.AlertWebhookURL != "" {
		surface = alert.NewWebhookSurface(cfg.AlertWebhookURL)
	}
	notifSvc := notification.NewService(notifRepo, settingsRepo, alert.NewDispatcher(surface, logger), logger)

	registry := tribunal.NewRegistry(storage.NewRemoteTracked(db), local, logger)
	registry.Load(ctx)

	bus := tribunal.NewBus()
	unsubscribe := bus.Subscribe(func(updates []models.TribunalUpdate) {
		logger.Info("feed updated", "entries", len(updates))
	})
	defer unsubscribe()

	client := tribunal.NewClient(cfg.CourtAPIURL, cfg.CourtAPIKey)
	poller := tribunal.NewPoller(tribunal.PollerConfig{
		BaseInterval: cfg.PollBaseInterval,
		MaxInterval:  cfg.PollMaxInterval,
	}, client, updatesRepo, registry, bus, notifSvc, logger)
	poller.Start(ctx)

	<-ctx.Done()
	logger.Info("tribunal sync stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
