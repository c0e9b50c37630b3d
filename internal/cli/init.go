// Package cli provides common initialization helpers shared by
// cmd/billgen and cmd/billgen-sync.
package cli

import (
	"fmt"
	"os"

	"billgen/internal/log"
	"billgen/internal/storage"
)

// SetupLogger initializes structured logging with default settings and
// installs it as the process default.
func SetupLogger() *log.Logger {
	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)
	return logger
}

// OpenStore opens the transaction store or exits the process. Connection
// failures are fatal for both binaries.
func OpenStore(logger *log.Logger, dbPath string) *storage.Repository {
	repo, err := storage.Open(dbPath)
	if err != nil {
		logger.Error("failed to open transaction store", log.FieldError, err, log.FieldPath, dbPath)
		os.Exit(1)
	}
	return repo
}

// EnsureDir creates the output directory if it does not exist.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create output directory %s: %w", path, err)
	}
	return nil
}
