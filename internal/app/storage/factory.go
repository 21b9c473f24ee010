// Package storage builds the metadata store and the cycle state service from
// the storage section of the configuration, so both share one backend.
package storage

import (
	"context"
	"fmt"

	"github.com/stacklok/toolhive-catalog-sync/internal/config"
	"github.com/stacklok/toolhive-catalog-sync/internal/store"
	"github.com/stacklok/toolhive-catalog-sync/internal/sync/state"
)

//go:generate mockgen -destination=mocks/mock_factory.go -package=mocks -source=factory.go Factory

// Factory creates the storage backed components of the service and owns the
// resources they share, such as the database pool
type Factory interface {
	// CreateStore returns the metadata store. Every call returns the same
	// instance, which the factory closes on Cleanup.
	CreateStore(ctx context.Context) (store.Store, error)

	// CreateStateService returns the cycle status service. The database
	// factory keeps status in Postgres, every other backend in files.
	CreateStateService(ctx context.Context) (state.ConnectorStateService, error)

	// Cleanup closes the store and releases pooled connections
	Cleanup()
}

// NewStorageFactory picks the factory for cfg's storage type
func NewStorageFactory(ctx context.Context, cfg *config.Config, opts ...DatabaseFactoryOption) (Factory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	switch storageType := cfg.GetStorageType(); storageType {
	case config.StorageTypeDatabase:
		return NewDatabaseFactory(ctx, cfg, opts...)
	case config.StorageTypeMemory, config.StorageTypeSQLite:
		return NewFileFactory(cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", storageType)
	}
}
