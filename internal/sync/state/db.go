package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stacklok/toolhive-catalog-sync/internal/config"
	"github.com/stacklok/toolhive-catalog-sync/internal/status"
)

// dbStateService stores cycle status as JSON in the connector_status table
type dbStateService struct {
	pool *pgxpool.Pool
}

// NewDBStateService creates a new database-backed connector state service
func NewDBStateService(pool *pgxpool.Pool) ConnectorStateService {
	return &dbStateService{
		pool: pool,
	}
}

func (d *dbStateService) Initialize(ctx context.Context, connectors []config.ConnectorConfig) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	names := make([]string, len(connectors))
	for i := range connectors {
		conn := &connectors[i]
		names[i] = conn.Name

		cycleStatus, err := selectStatus(ctx, tx, conn.Name, true)
		switch {
		case errors.Is(err, ErrConnectorNotFound):
			if err := upsertStatus(ctx, tx, conn.Name, initialStatus(conn)); err != nil {
				return err
			}
		case err != nil:
			return err
		case recoverStatus(conn, cycleStatus):
			if err := upsertStatus(ctx, tx, conn.Name, cycleStatus); err != nil {
				return err
			}
		}
	}

	// Connectors removed from the configuration lose their state
	if _, err := tx.Exec(ctx,
		`DELETE FROM connector_status WHERE NOT (name = ANY($1::text[]))`, names); err != nil {
		return fmt.Errorf("failed to delete stale connector status: %w", err)
	}

	return tx.Commit(ctx)
}

func (d *dbStateService) ListCycleStatuses(ctx context.Context) (map[string]*status.CycleStatus, error) {
	rows, err := d.pool.Query(ctx, `SELECT name, status FROM connector_status ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list connector status: %w", err)
	}
	defer rows.Close()

	result := make(map[string]*status.CycleStatus)
	for rows.Next() {
		var (
			name string
			raw  []byte
		)
		if err := rows.Scan(&name, &raw); err != nil {
			return nil, fmt.Errorf("failed to read connector status: %w", err)
		}
		cycleStatus, err := decodeStatus(name, raw)
		if err != nil {
			return nil, err
		}
		result[name] = cycleStatus
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list connector status: %w", err)
	}
	return result, nil
}

func (d *dbStateService) GetCycleStatus(ctx context.Context, connector string) (*status.CycleStatus, error) {
	return selectStatus(ctx, d.pool, connector, false)
}

func (d *dbStateService) UpdateCycleStatus(ctx context.Context, connector string, cycleStatus *status.CycleStatus) error {
	return upsertStatus(ctx, d.pool, connector, cycleStatus)
}

func (d *dbStateService) UpdateStatusAtomically(
	ctx context.Context,
	connector string,
	updateFn func(cycleStatus *status.CycleStatus) bool,
) (bool, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cycleStatus, err := selectStatus(ctx, tx, connector, true)
	if err != nil {
		return false, err
	}
	if !updateFn(cycleStatus) {
		return false, nil
	}
	if err := upsertStatus(ctx, tx, connector, cycleStatus); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// querier is satisfied by both the pool and a transaction
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func selectStatus(ctx context.Context, q querier, connector string, forUpdate bool) (*status.CycleStatus, error) {
	query := `SELECT status FROM connector_status WHERE name = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var raw []byte
	if err := q.QueryRow(ctx, query, connector).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrConnectorNotFound, connector)
		}
		return nil, fmt.Errorf("failed to get status of connector %s: %w", connector, err)
	}
	return decodeStatus(connector, raw)
}

func upsertStatus(ctx context.Context, q querier, connector string, cycleStatus *status.CycleStatus) error {
	raw, err := json.Marshal(cycleStatus)
	if err != nil {
		return fmt.Errorf("failed to marshal status of connector %s: %w", connector, err)
	}
	_, err = q.Exec(ctx,
		`INSERT INTO connector_status (name, status, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (name) DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`,
		connector, raw)
	if err != nil {
		return fmt.Errorf("failed to store status of connector %s: %w", connector, err)
	}
	return nil
}

func decodeStatus(connector string, raw []byte) (*status.CycleStatus, error) {
	var cycleStatus status.CycleStatus
	if err := json.Unmarshal(raw, &cycleStatus); err != nil {
		return nil, fmt.Errorf("failed to decode status of connector %s: %w", connector, err)
	}
	return &cycleStatus, nil
}
