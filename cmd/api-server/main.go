package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"lexhub/database"
	"lexhub/internal/alert"
	"lexhub/internal/auth"
	"lexhub/internal/config"
	"lexhub/internal/httpapi/handler"
	"lexhub/internal/notification"
	"lexhub/internal/storage"
	"lexhub/internal/tribunal"
)

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

	// The backend store is optional at startup: without it the service
	// runs local-only and keeps answering from the fallback cache.
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
	dispatcher := alert.NewDispatcher(surface, logger)

	notifSvc := notification.NewService(notifRepo, settingsRepo, dispatcher, logger)
	notifSvc.StartSweeper(ctx)

	registry := tribunal.NewRegistry(storage.NewRemoteTracked(db), local, logger)
	registry.Load(ctx)

	bus := tribunal.NewBus()
	client := tribunal.NewClient(cfg.CourtAPIURL, cfg.CourtAPIKey)
	poller := tribunal.NewPoller(tribunal.PollerConfig{
		BaseInterval: cfg.PollBaseInterval,
		MaxInterval:  cfg.PollMaxInterval,
	}, client, updatesRepo, registry, bus, notifSvc, logger)
	poller.Start(ctx)

	authSvc := auth.NewService(storage.NewRemoteUsers(db), cfg.JWTSecret, cfg.JWTExpiry)

	if cfg.GoEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "backend": db != nil})
	})

	handler.NewAuthHandler(authSvc).RegisterRoutes(r.Group("/api/auth"))

	api := r.Group("/api", auth.Middleware(authSvc))
	handler.NewNotificationHandler(notifSvc).RegisterRoutes(api.Group("/notifications"))
	handler.NewTribunalHandler(registry, bus).RegisterRoutes(api.Group("/tribunal"))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: r,
	}

	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
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
