package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/stacklok/toolhive-catalog-sync/internal/config"
	"github.com/stacklok/toolhive-catalog-sync/internal/db"
	"github.com/stacklok/toolhive-catalog-sync/internal/status"
	"github.com/stacklok/toolhive-catalog-sync/internal/sync/state"
)

// statusDirectory holds the per-connector status files of the local storage types
func statusDirectory(cfg *config.Config) string {
	return filepath.Join(cfg.GetDataDir(), "status")
}

// LoadCycleStatuses reads the persisted cycle status of every connector
// without initializing or correcting anything, so that it can run next to a
// serving process
func LoadCycleStatuses(ctx context.Context, cfg *config.Config) (map[string]*status.CycleStatus, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if cfg.GetStorageType() != config.StorageTypeDatabase {
		return status.NewFileStatusPersistence(statusDirectory(cfg)).LoadAllStatus(ctx)
	}

	if cfg.Storage == nil || cfg.Storage.Database == nil {
		return nil, fmt.Errorf("database configuration is required for database storage type")
	}
	pool, err := db.NewPool(ctx, cfg.Storage.Database)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	return state.NewDBStateService(pool).ListCycleStatuses(ctx)
}
