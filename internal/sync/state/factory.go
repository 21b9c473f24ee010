package state

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stacklok/toolhive-catalog-sync/internal/config"
	"github.com/stacklok/toolhive-catalog-sync/internal/status"
)

// NewStateService creates a ConnectorStateService based on the configured storage type.
//
// For database storage, it returns a service that stores cycle status in the
// connector_status table. The pool parameter must not be nil in that case.
//
// Every other storage type keeps cycle status in files under the data
// directory, using the provided StatusPersistence.
func NewStateService(
	cfg *config.Config,
	statusPersistence status.StatusPersistence,
	pool *pgxpool.Pool,
) (ConnectorStateService, error) {
	switch cfg.GetStorageType() {
	case config.StorageTypeDatabase:
		if pool == nil {
			return nil, fmt.Errorf("database pool is required when storage type is database")
		}
		return NewDBStateService(pool), nil
	default:
		if statusPersistence == nil {
			return nil, fmt.Errorf("status persistence is required when storage type is %s", cfg.GetStorageType())
		}
		return NewFileStateService(statusPersistence), nil
	}
}
