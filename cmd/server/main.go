package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adaptiverag/metagraph/internal/api"
	"github.com/adaptiverag/metagraph/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	if err := config.Load(); err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx := context.Background()

	// Postgres is optional: without it the server learns in memory only.
	var pool *pgxpool.Pool
	if dbURL := config.DatabaseURL(); dbURL != "" {
		var err error
		pool, err = pgxpool.New(ctx, dbURL)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			logger.Fatal("failed to ping database", zap.Error(err))
		}
		logger.Info("connected to database")
	}

	app := api.NewApp(pool, logger)

	// Warm-start the outcome log from the last snapshot, if any.
	if path := config.OutcomeSnapshotPath(); path != "" {
		count, err := app.Tracker.LoadFromFile(path)
		if err != nil {
			logger.Warn("failed to load outcome snapshot", zap.String("path", path), zap.Error(err))
		} else if count > 0 {
			logger.Info("loaded outcome snapshot", zap.String("path", path), zap.Int("outcomes", count))
		}
	}

	// Start background services
	if config.AutoActivateEnabled() {
		app.Activator.Start()
	}

	addr := config.ServerAddr()
	srv := &http.Server{
		Addr:    addr,
		Handler: app.Router,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")

	// Stop background services
	if config.AutoActivateEnabled() {
		app.Activator.Stop()
	}

	if path := config.OutcomeSnapshotPath(); path != "" {
		if err := app.Tracker.ExportToFile(path); err != nil {
			logger.Warn("failed to export outcome snapshot", zap.String("path", path), zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
