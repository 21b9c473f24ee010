// Package status provides cycle status tracking and persistence for catalog connectors.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

//go:generate mockgen -destination=mocks/mock_status_persistence.go -package=mocks -source=persistence.go StatusPersistence

const (
	// StatusFileName is the name of the status file
	StatusFileName = "status.json"

	lockFileName = "status.lock"
)

// StatusPersistence defines the interface for cycle status persistence
//
//nolint:revive // This name is fine
type StatusPersistence interface {
	// SaveStatus saves the cycle status of a connector to persistent storage
	SaveStatus(ctx context.Context, connector string, status *CycleStatus) error

	// LoadStatus loads the cycle status of a connector from persistent storage.
	// Returns an empty CycleStatus if the file doesn't exist (first run)
	LoadStatus(ctx context.Context, connector string) (*CycleStatus, error)

	// LoadAllStatus loads the cycle status of every persisted connector
	LoadAllStatus(ctx context.Context) (map[string]*CycleStatus, error)
}

// fileStatusPersistence implements StatusPersistence using local filesystem.
// Every connector directory holds a lock file so that the status command of
// another process never reads a half-replaced status.
type fileStatusPersistence struct {
	basePath string
}

// NewFileStatusPersistence creates a new file-based status persistence
// basePath is the base directory where per-connector status files will be stored
func NewFileStatusPersistence(basePath string) StatusPersistence {
	return &fileStatusPersistence{
		basePath: basePath,
	}
}

// SaveStatus saves the cycle status to a JSON file in a connector-specific directory
func (f *fileStatusPersistence) SaveStatus(ctx context.Context, connector string, status *CycleStatus) error {
	connectorDir := filepath.Join(f.basePath, connector)
	if err := os.MkdirAll(connectorDir, 0750); err != nil {
		return fmt.Errorf("failed to create status directory for connector '%s': %w", connector, err)
	}

	lock := flock.New(filepath.Join(connectorDir, lockFileName))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock status of connector '%s': %w", connector, err)
	}
	defer unlock(ctx, lock)

	filePath := filepath.Join(connectorDir, StatusFileName)

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status data for connector '%s': %w", connector, err)
	}

	// Write to temporary file first for atomic operation
	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary status file for connector '%s': %w", connector, err)
	}

	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename status file for connector '%s': %w", connector, err)
	}

	return nil
}

// LoadStatus loads the cycle status from a JSON file for a specific connector
// Returns an empty CycleStatus if the file doesn't exist
func (f *fileStatusPersistence) LoadStatus(ctx context.Context, connector string) (*CycleStatus, error) {
	connectorDir := filepath.Join(f.basePath, connector)
	filePath := filepath.Join(connectorDir, StatusFileName)

	if _, err := os.Stat(connectorDir); err == nil {
		lock := flock.New(filepath.Join(connectorDir, lockFileName))
		if err := lock.RLock(); err != nil {
			return nil, fmt.Errorf("failed to lock status of connector '%s': %w", connector, err)
		}
		defer unlock(ctx, lock)
	}

	// #nosec G304 -- filePath is constructed from trusted internal sources (basePath + validated connector name)
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &CycleStatus{}, nil
		}
		return nil, fmt.Errorf("failed to read status file for connector '%s': %w", connector, err)
	}

	var status CycleStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status data for connector '%s': %w", connector, err)
	}

	return &status, nil
}

// LoadAllStatus loads the cycle status of every connector directory under basePath
func (f *fileStatusPersistence) LoadAllStatus(ctx context.Context) (map[string]*CycleStatus, error) {
	result := make(map[string]*CycleStatus)

	entries, err := os.ReadDir(f.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, fmt.Errorf("failed to read status directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		connector := entry.Name()
		status, err := f.LoadStatus(ctx, connector)
		if err != nil {
			// Keep partial results if some connectors fail to load
			slog.WarnContext(ctx, "Skipping unreadable connector status",
				"connector", connector,
				"error", err)
			continue
		}

		result[connector] = status
	}

	return result, nil
}

func unlock(ctx context.Context, lock *flock.Flock) {
	if err := lock.Unlock(); err != nil {
		slog.WarnContext(ctx, "Failed to release status lock", "path", lock.Path(), "error", err)
	}
}
