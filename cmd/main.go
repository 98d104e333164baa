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
	"time"

	"github.com/Meshu-webDEV/singularity-api/config"
	"github.com/Meshu-webDEV/singularity-api/db"
	"github.com/Meshu-webDEV/singularity-api/handlers"
	"github.com/Meshu-webDEV/singularity-api/live"
	"github.com/Meshu-webDEV/singularity-api/notifier"
	"github.com/Meshu-webDEV/singularity-api/repositories"
	api "github.com/Meshu-webDEV/singularity-api/routes"
	"github.com/Meshu-webDEV/singularity-api/services"
	"github.com/Meshu-webDEV/singularity-api/shortener"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

// janitorInterval is how often the lifecycle sweeps run.
const janitorInterval = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	hub := live.NewHub(logger)
	go hub.Run()
	logger.Info("live hub started")

	eventRepo := repositories.NewPostgresEventRepository(dbConn)
	webhookRepo := repositories.NewWebhookRepository(dbConn)
	logger.Info("repositories initialized")

	announcer := notifier.New(cfg.NotifierName, cfg.NotifierAvatarURL, logger)
	links := shortener.NewClient(cfg.ShortenerOrigin)

	eventService := services.NewEventService(
		eventRepo,
		webhookRepo,
		announcer,
		hub,
		links,
		cfg.ClientOrigin,
		cfg.APIOrigin,
		logger,
	)
	webhookService := services.NewWebhookService(webhookRepo, announcer)
	logger.Info("services initialized")

	// Lifecycle janitor: start events whose time has come, complete events
	// stuck ongoing past the grace period.
	go func() {
		ticker := time.NewTicker(janitorInterval)
		defer ticker.Stop()
		logger.Info("lifecycle janitor started", slog.Duration("interval", janitorInterval))

		sweep := func() {
			if started, err := eventService.AutoStart(context.Background()); err != nil {
				logger.Error("janitor: auto-start sweep failed", slog.Any("error", err))
			} else if started > 0 {
				logger.Info("janitor: events auto-started", slog.Int64("count", started))
			}
			if ended, err := eventService.AutoEnd(context.Background()); err != nil {
				logger.Error("janitor: auto-end sweep failed", slog.Any("error", err))
			} else if ended > 0 {
				logger.Info("janitor: events auto-ended", slog.Int64("count", ended))
			}
		}

		sweep()
		for range ticker.C {
			sweep()
		}
	}()

	eventHandler := handlers.NewEventHandler(eventService)
	webhookHandler := handlers.NewWebhookHandler(webhookService)
	webSocketHandler := handlers.NewWebSocketHandler(hub, eventService)
	logger.Info("HTTP handlers initialized")

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		api.Config{JWTSecretKey: cfg.JWTSecretKey, ClientOrigin: cfg.ClientOrigin},
		eventHandler,
		webhookHandler,
		webSocketHandler,
	)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
		} else {
			logger.Info("server shut down gracefully")
		}
	}
}
