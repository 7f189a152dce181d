package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/dank-memes/backend/internal/handlers"
	"github.com/anonto42/dank-memes/backend/internal/logger"
	"github.com/anonto42/dank-memes/backend/internal/router"
	"github.com/anonto42/dank-memes/backend/internal/services"
	"github.com/anonto42/dank-memes/backend/pkg/config"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func main() {
	envErr := config.LoadEnvFile()

	if err := logger.Initialize(config.LogSettings()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	if envErr != nil {
		logger.Log.Info("No .env file found, assuming environment variables are set")
	}

	// Load configuration
	cfg := config.Load()

	// Initialize database connections for the selected backends
	db, err := config.InitDB(cfg)
	if err != nil {
		logger.FatalWithFields("Failed to initialize databases", err)
	}
	defer db.CloseDB()

	ctx := context.Background()
	b, err := buildBackends(ctx, cfg, db)
	if err != nil {
		logger.FatalWithFields("Failed to initialize backends", err)
	}
	defer b.close()

	counters := services.NewCounterService(b.counters, b.users, b.memes, b.sender, services.CounterConfig{
		BroadcastThreshold: cfg.BroadcastThreshold,
		BroadcastTopic:     cfg.BroadcastTopic,
		Location:           cfg.Location(),
	})
	propagation := services.NewPropagationEngine(b.memes, b.comments, b.notifications, services.PropagationConfig{
		MuteExclusive: cfg.MuteExclusive,
		Concurrency:   cfg.PropagationConcurrency,
	})
	notifier := services.NewNotifier(b.users, b.memes, b.comments, b.notifications, b.deduper, b.sender, services.NotifierConfig{
		AdminTopic: cfg.AdminTopic,
	})
	thumbnails := services.NewThumbnailService(b.buckets, b.memes, services.ThumbnailConfig{
		MaxSize: cfg.ThumbnailMaxSize,
	})

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	config.SetupMiddleware(e)
	router.SetupRoutes(e, handlers.NewEventHandler(counters, propagation, notifier, thumbnails), cfg.EventsSigningKey)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info("Event functions listening", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.FatalWithFields("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	// Give outstanding events 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithFields("Server forced to shutdown", err)
	}

	logger.Log.Info("Server exited")
}
