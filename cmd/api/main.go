package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ressKim-io/EvoGuard/predict-service/internal/adapter/http/router"
	"github.com/ressKim-io/EvoGuard/predict-service/internal/app"
	"github.com/ressKim-io/EvoGuard/predict-service/internal/infrastructure/config"
	"github.com/ressKim-io/EvoGuard/predict-service/internal/infrastructure/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log, err := logger.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	// Set Gin mode
	gin.SetMode(cfg.Server.Mode)

	// Wire models, cache and usecase. Pipelines load on first use.
	a := app.New(cfg, log, prometheus.DefaultRegisterer)
	defer func() { _ = a.Close() }()
	log.Info("Models configured",
		zap.String("text", a.TextModel.ModelName()),
		zap.String("image", a.ImageModel.ModelName()),
		zap.String("ml_service", cfg.ML.BaseURL),
	)

	// Setup router
	r := router.Setup(router.Dependencies{
		Predict:   a.Predict,
		ML:        a.ML,
		Redis:     a.Redis,
		Pipelines: a.Pipelines(),
		ImageRoot: cfg.Models.ImageRoot,
	}, log)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.ML.Timeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("Starting server", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
	return nil
}
