package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/calvey/hauntex/internal/api"
	"github.com/calvey/hauntex/internal/config"
	"github.com/calvey/hauntex/internal/logger"
	"github.com/calvey/hauntex/internal/pipeline"
	"github.com/calvey/hauntex/internal/repository"
)

func main() {
	// Initialize logger from environment
	appLogger := logger.NewFromEnv(logger.LoadFromEnv())
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	recordRepo := repository.NewRecordRepository(db)
	jobRepo := repository.NewJobRepository(db)

	ctx := context.Background()
	idx := pipeline.SelectIndex(ctx, cfg, appLogger)

	// Rebuild the index from committed records so queries reflect every
	// completed ingestion run.
	records, err := recordRepo.ListProcessedImages(ctx)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load processed records")
	}
	for i := range records {
		if err := idx.Insert(ctx, records[i].ID, records[i].Descriptor); err != nil {
			appLogger.WithError(err).WithField(logger.FieldItemID, records[i].ID).
				Fatal("Failed to rebuild index")
		}
	}
	appLogger.WithField("count", len(records)).Info("Index rebuilt from committed records")

	// Setup router
	router := api.SetupRouter(idx, recordRepo, jobRepo, &cfg.Server, appLogger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
