package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"stockroom/internal/config"
	"stockroom/internal/logger"
	"stockroom/internal/repository"
	"stockroom/internal/server"
	"stockroom/internal/storage"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *server.Server, logger *zap.Logger, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// The context is used to inform the server it has 30 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// Close server resources
	if err := apiServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

// openInventory loads the backing file and applies the configured corrupt-file
// policy: back up and reset, or refuse to start
func openInventory(cfg *config.Config, log *zap.Logger) (repository.ProductRepository, error) {
	fileStore := storage.NewFileStore(cfg.Store.File, cfg.Store.BackupDir, log)

	repo, err := repository.Open(fileStore, log)
	if err == nil {
		return repo, nil
	}

	var corrupt *storage.CorruptDataError
	if !errors.As(err, &corrupt) {
		return nil, err
	}

	if !cfg.Store.ResetOnCorrupt {
		return nil, fmt.Errorf("inventory file is corrupt and STORE_RESET_ON_CORRUPT is disabled: %w", err)
	}

	backupPath, resetErr := repo.ResetCorrupt()
	if resetErr != nil {
		return nil, fmt.Errorf("failed to reset corrupt inventory: %w", resetErr)
	}

	log.Warn("Corrupt inventory file backed up and reset",
		zap.String("file", cfg.Store.File),
		zap.String("backup", backupPath),
	)
	return repo, nil
}

func main() {
	// Load .env into the environment before reading configuration
	godotenv.Load()

	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting inventory API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("store_file", cfg.Store.File),
	)

	// Open the inventory store
	repo, err := openInventory(cfg, log)
	if err != nil {
		log.Fatal("Failed to open inventory store", zap.Error(err))
	}

	// Create server
	srv := server.NewServer(cfg, log, repo)

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(srv, log, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal("HTTP server error", zap.Error(err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Info("Graceful shutdown complete")
}
