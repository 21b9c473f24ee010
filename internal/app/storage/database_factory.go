package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/toolhive-catalog-sync/internal/config"
	"github.com/stacklok/toolhive-catalog-sync/internal/db"
	"github.com/stacklok/toolhive-catalog-sync/internal/store"
	dbstore "github.com/stacklok/toolhive-catalog-sync/internal/store/db"
	"github.com/stacklok/toolhive-catalog-sync/internal/sync/state"
)

// DatabaseFactory creates database-backed storage components.
// All components created by this factory use PostgreSQL for persistence.
type DatabaseFactory struct {
	config *config.Config
	pool   *pgxpool.Pool
	tracer trace.Tracer

	mu    sync.Mutex
	store store.Store
}

var _ Factory = (*DatabaseFactory)(nil)

// DatabaseFactoryOption is a functional option for configuring the DatabaseFactory
type DatabaseFactoryOption func(*DatabaseFactory)

// WithTracer sets the OpenTelemetry tracer for the database store.
// If not set, tracing will be disabled (no-op).
func WithTracer(tracer trace.Tracer) DatabaseFactoryOption {
	return func(f *DatabaseFactory) {
		f.tracer = tracer
	}
}

// NewDatabaseFactory creates a new database-backed storage factory.
// It establishes a connection pool to the configured PostgreSQL database.
func NewDatabaseFactory(ctx context.Context, cfg *config.Config, opts ...DatabaseFactoryOption) (*DatabaseFactory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if cfg.Storage == nil || cfg.Storage.Database == nil {
		return nil, fmt.Errorf("database configuration is required for database storage type")
	}

	slog.Info("Creating database-backed storage factory")

	pool, err := db.NewPool(ctx, cfg.Storage.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %w", err)
	}

	return newDatabaseFactory(cfg, pool, opts...), nil
}

func newDatabaseFactory(cfg *config.Config, pool *pgxpool.Pool, opts ...DatabaseFactoryOption) *DatabaseFactory {
	factory := &DatabaseFactory{
		config: cfg,
		pool:   pool,
	}
	for _, opt := range opts {
		opt(factory)
	}
	return factory
}

// CreateStore creates the PostgreSQL metadata store on first use
func (d *DatabaseFactory) CreateStore(_ context.Context) (store.Store, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.store != nil {
		return d.store, nil
	}

	slog.Debug("Creating database-backed metadata store")

	opts := []dbstore.Option{
		dbstore.WithConnectionPool(d.pool),
	}
	if d.tracer != nil {
		opts = append(opts, dbstore.WithTracer(d.tracer))
		slog.Debug("Database store tracing enabled")
	}

	st, err := dbstore.New(opts...)
	if err != nil {
		return nil, err
	}
	d.store = st
	return st, nil
}

// CreateStateService creates a database-backed state service for cycle status tracking.
func (d *DatabaseFactory) CreateStateService(_ context.Context) (state.ConnectorStateService, error) {
	slog.Debug("Creating database-backed state service")
	return state.NewStateService(d.config, nil, d.pool)
}

// Cleanup releases resources held by the database factory.
// This closes the database connection pool and any active connections.
func (d *DatabaseFactory) Cleanup() {
	if d.pool != nil {
		slog.Info("Closing database connection pool")
		d.pool.Close()
	}
}
