package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/stacklok/toolhive-catalog-sync/internal/config"
	"github.com/stacklok/toolhive-catalog-sync/internal/status"
	"github.com/stacklok/toolhive-catalog-sync/internal/store"
	"github.com/stacklok/toolhive-catalog-sync/internal/store/memory"
	"github.com/stacklok/toolhive-catalog-sync/internal/store/sqlite"
	"github.com/stacklok/toolhive-catalog-sync/internal/sync/state"
)

// FileFactory creates components for the local storage types. The catalog is
// kept in memory or in a SQLite file, and cycle status in JSON files under the
// data directory.
type FileFactory struct {
	config *config.Config

	statusPersistence status.StatusPersistence

	mu    sync.Mutex
	store store.Store
}

var _ Factory = (*FileFactory)(nil)

// NewFileFactory creates a new file-based storage factory.
// It ensures the data directory exists.
func NewFileFactory(cfg *config.Config) (*FileFactory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}

	slog.Info("Creating file-based storage factory",
		"storage_type", cfg.GetStorageType(),
		"data_dir", dataDir)

	return &FileFactory{
		config:            cfg,
		statusPersistence: status.NewFileStatusPersistence(statusDirectory(cfg)),
	}, nil
}

// CreateStore opens the memory or SQLite store on first use
func (f *FileFactory) CreateStore(_ context.Context) (store.Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.store != nil {
		return f.store, nil
	}

	switch f.config.GetStorageType() {
	case config.StorageTypeSQLite:
		path := f.config.GetSQLitePath()
		slog.Debug("Opening SQLite metadata store", "path", path)
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
		st, err := sqlite.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite store: %w", err)
		}
		f.store = st
	default:
		slog.Debug("Creating in-memory metadata store")
		f.store = memory.New()
	}
	return f.store, nil
}

// CreateStateService creates a file-based state service for cycle status tracking.
func (f *FileFactory) CreateStateService(_ context.Context) (state.ConnectorStateService, error) {
	slog.Debug("Creating file-based state service")
	return state.NewStateService(f.config, f.statusPersistence, nil)
}

// Cleanup closes the store if one was opened
func (f *FileFactory) Cleanup() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.store == nil {
		return
	}
	if err := f.store.Close(); err != nil {
		slog.Warn("Failed to close metadata store", "error", err)
	}
	f.store = nil
}
