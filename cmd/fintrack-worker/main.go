package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"fintrack/internal/amqp"
	"fintrack/internal/blob"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.Config{Component: log.ComponentWorker})
	log.SetDefault(logger)

	logger.Info("Starting fintrack-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the cleanup worker")
		os.Exit(1)
	}

	// The worker registers every backend it can reach so messages from
	// either storage type are handled.
	var backends []blob.Backend
	disk, err := blob.NewDiskBackend(cfg.BlobDir)
	if err != nil {
		logger.Error("Failed to initialize disk backend", "error", err, "dir", cfg.BlobDir)
		os.Exit(1)
	}
	backends = append(backends, disk)

	if cfg.GoogleDriveFolderID != "" {
		drive, err := blob.NewDriveBackend(context.Background(), blob.DriveConfig{
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
			FolderID:           cfg.GoogleDriveFolderID,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Drive backend", "error", err)
			os.Exit(1)
		}
		backends = append(backends, drive)
		logger.Info("Google Drive backend initialized", "folder_id", cfg.GoogleDriveFolderID)
	} else {
		logger.Info("Google Drive disabled - no GOOGLE_DRIVE_FOLDER_ID provided")
	}

	cleanupWorker := worker.NewCleanupWorker(backends...)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Consuming cleanup messages", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	err = amqp.ConsumeCleanupWithRetry(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cleanupWorker.HandleCleanupMessage)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}
