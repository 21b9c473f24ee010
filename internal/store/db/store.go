// Package db provides a metadata store backed by PostgreSQL
package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/toolhive-catalog-sync/internal/catalog"
	"github.com/stacklok/toolhive-catalog-sync/internal/otel"
	"github.com/stacklok/toolhive-catalog-sync/internal/store"
)

// uniqueViolation is the SQLSTATE for unique_violation
const uniqueViolation = "23505"

const elementColumns = `guid, qualified_name, external_id, resource_type, status, version,
	fingerprint, template_qualified_name, attributes, created_at, updated_at`

// options holds configuration options for the database store
type options struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// Option is a functional option for configuring the database store
type Option func(*options) error

// WithConnectionPool sets the pgx pool. The store closes the pool on Close.
func WithConnectionPool(pool *pgxpool.Pool) Option {
	return func(o *options) error {
		if pool == nil {
			return fmt.Errorf("pgx pool is required")
		}
		o.pool = pool
		return nil
	}
}

// WithTracer sets the OpenTelemetry tracer for the database store.
// If not set, tracing is disabled.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) error {
		o.tracer = tracer
		return nil
	}
}

// dbStore implements store.Store against the schema in database/migrations
type dbStore struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

var _ store.Store = (*dbStore)(nil)

// New creates a Postgres-backed metadata store
func New(opts ...Option) (store.Store, error) {
	o := &options{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.pool == nil {
		return nil, fmt.Errorf("pgx pool is required")
	}
	return &dbStore{pool: o.pool, tracer: o.tracer}, nil
}

func (s *dbStore) MissingTypes(ctx context.Context, typeNames []string) ([]string, error) {
	ctx, span := s.startSpan(ctx, "dbStore.MissingTypes")
	defer span.End()

	if len(typeNames) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT t.name FROM unnest($1::text[]) AS t(name)
		 WHERE NOT EXISTS (SELECT 1 FROM metadata_types m WHERE m.name = t.name)
		 ORDER BY t.name`, typeNames)
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to query metadata types: %w", err)
	}
	missing, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to read metadata types: %w", err)
	}
	return missing, nil
}

func (s *dbStore) ListElements(ctx context.Context, prefix string) ([]*catalog.CatalogElement, error) {
	ctx, span := s.startSpan(ctx, "dbStore.ListElements",
		trace.WithAttributes(otel.AttrQualifiedNamePrefix.String(prefix)))
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT `+elementColumns+` FROM catalog_elements
		 WHERE left(qualified_name, length($1)) = $1
		 ORDER BY qualified_name`, prefix)
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to list elements: %w", err)
	}
	defer rows.Close()

	result := make([]*catalog.CatalogElement, 0)
	for rows.Next() {
		element, err := scanElement(rows)
		if err != nil {
			otel.RecordError(span, err)
			return nil, err
		}
		result = append(result, element)
	}
	if err := rows.Err(); err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to iterate elements: %w", err)
	}

	span.SetAttributes(otel.AttrResultCount.Int(len(result)))
	return result, nil
}

func (s *dbStore) GetTemplate(ctx context.Context, qualifiedName string) (*catalog.Template, error) {
	ctx, span := s.startSpan(ctx, "dbStore.GetTemplate",
		trace.WithAttributes(otel.AttrQualifiedName.String(qualifiedName)))
	defer span.End()

	var (
		guid  uuid.UUID
		tmpl  catalog.Template
		attrs []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT guid, qualified_name, attributes FROM templates WHERE qualified_name = $1`, qualifiedName,
	).Scan(&guid, &tmpl.QualifiedName, &attrs)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("template %s: %w", qualifiedName, store.ErrNotFound)
	}
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to get template %s: %w", qualifiedName, err)
	}
	tmpl.GUID = guid.String()
	if tmpl.Attributes, err = decodeAttributes(attrs); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

func (s *dbStore) CreateElement(ctx context.Context, req *store.CreateElementRequest) (*catalog.CatalogElement, error) {
	if req == nil || req.QualifiedName == "" {
		return nil, fmt.Errorf("qualified name is required")
	}

	ctx, span := s.startSpan(ctx, "dbStore.CreateElement",
		trace.WithAttributes(otel.AttrQualifiedName.String(req.QualifiedName)))
	defer span.End()

	attrs, err := encodeAttributes(req.Attributes)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	row := s.pool.QueryRow(ctx,
		`INSERT INTO catalog_elements (`+elementColumns+`)
		 VALUES ($1, $2, $3, $4, 'ACTIVE', 1, $5, $6, $7, $8, $8)
		 RETURNING `+elementColumns,
		uuid.New(), req.QualifiedName, req.ExternalID, req.ResourceType,
		req.Fingerprint, req.TemplateQualifiedName, attrs, now)
	element, err := scanElement(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("element %s: %w", req.QualifiedName, store.ErrAlreadyExists)
		}
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to create element %s: %w", req.QualifiedName, err)
	}
	return element, nil
}

func (s *dbStore) UpdateElement(
	ctx context.Context, guid string, req *store.UpdateElementRequest,
) (*catalog.CatalogElement, error) {
	if req == nil {
		return nil, fmt.Errorf("update request is required")
	}

	ctx, span := s.startSpan(ctx, "dbStore.UpdateElement",
		trace.WithAttributes(otel.AttrElementGUID.String(guid)))
	defer span.End()

	id, err := uuid.Parse(guid)
	if err != nil {
		return nil, fmt.Errorf("element %s: %w", guid, store.ErrNotFound)
	}
	attrs, err := encodeAttributes(req.Attributes)
	if err != nil {
		return nil, err
	}

	row := s.pool.QueryRow(ctx,
		`UPDATE catalog_elements
		 SET fingerprint = $2, attributes = $3, status = 'ACTIVE', version = version + 1, updated_at = $4
		 WHERE guid = $1 AND ($5 = 0 OR version = $5)
		 RETURNING `+elementColumns,
		id, req.Fingerprint, attrs, time.Now().UTC(), req.ExpectedVersion)
	element, err := scanElement(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, s.missingOrConflict(ctx, id, guid)
	}
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to update element %s: %w", guid, err)
	}
	return element, nil
}

func (s *dbStore) ArchiveElement(ctx context.Context, guid string) (*catalog.CatalogElement, error) {
	ctx, span := s.startSpan(ctx, "dbStore.ArchiveElement",
		trace.WithAttributes(otel.AttrElementGUID.String(guid)))
	defer span.End()

	id, err := uuid.Parse(guid)
	if err != nil {
		return nil, fmt.Errorf("element %s: %w", guid, store.ErrNotFound)
	}

	row := s.pool.QueryRow(ctx,
		`UPDATE catalog_elements
		 SET status = 'ARCHIVED', version = version + 1, updated_at = $2
		 WHERE guid = $1
		 RETURNING `+elementColumns,
		id, time.Now().UTC())
	element, err := scanElement(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("element %s: %w", guid, store.ErrNotFound)
	}
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to archive element %s: %w", guid, err)
	}
	return element, nil
}

func (s *dbStore) DeleteElement(ctx context.Context, guid string) error {
	ctx, span := s.startSpan(ctx, "dbStore.DeleteElement",
		trace.WithAttributes(otel.AttrElementGUID.String(guid)))
	defer span.End()

	id, err := uuid.Parse(guid)
	if err != nil {
		return fmt.Errorf("element %s: %w", guid, store.ErrNotFound)
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM catalog_elements WHERE guid = $1`, id)
	if err != nil {
		otel.RecordError(span, err)
		return fmt.Errorf("failed to delete element %s: %w", guid, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("element %s: %w", guid, store.ErrNotFound)
	}
	return nil
}

func (s *dbStore) RegisterTypes(ctx context.Context, typeNames []string) error {
	ctx, span := s.startSpan(ctx, "dbStore.RegisterTypes")
	defer span.End()

	if len(typeNames) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO metadata_types (name) SELECT unnest($1::text[]) ON CONFLICT (name) DO NOTHING`,
		typeNames)
	if err != nil {
		otel.RecordError(span, err)
		return fmt.Errorf("failed to register metadata types: %w", err)
	}
	return nil
}

func (s *dbStore) PutTemplate(ctx context.Context, template *catalog.Template) error {
	if template == nil || template.QualifiedName == "" {
		return fmt.Errorf("template qualified name is required")
	}

	ctx, span := s.startSpan(ctx, "dbStore.PutTemplate",
		trace.WithAttributes(otel.AttrQualifiedName.String(template.QualifiedName)))
	defer span.End()

	attrs, err := encodeAttributes(template.Attributes)
	if err != nil {
		return err
	}
	id := uuid.New()
	if template.GUID != "" {
		if id, err = uuid.Parse(template.GUID); err != nil {
			return fmt.Errorf("invalid template guid %q: %w", template.GUID, err)
		}
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO templates (guid, qualified_name, attributes) VALUES ($1, $2, $3)
		 ON CONFLICT (qualified_name) DO UPDATE SET attributes = EXCLUDED.attributes`,
		id, template.QualifiedName, attrs)
	if err != nil {
		otel.RecordError(span, err)
		return fmt.Errorf("failed to store template %s: %w", template.QualifiedName, err)
	}
	return nil
}

func (s *dbStore) Close() error {
	s.pool.Close()
	return nil
}

// missingOrConflict explains why a conditional update matched no rows
func (s *dbStore) missingOrConflict(ctx context.Context, id uuid.UUID, guid string) error {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM catalog_elements WHERE guid = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check element %s: %w", guid, err)
	}
	if !exists {
		return fmt.Errorf("element %s: %w", guid, store.ErrNotFound)
	}
	return fmt.Errorf("element %s: %w", guid, store.ErrVersionConflict)
}

func scanElement(row pgx.Row) (*catalog.CatalogElement, error) {
	var (
		element catalog.CatalogElement
		guid    uuid.UUID
		status  string
		attrs   []byte
	)
	err := row.Scan(&guid, &element.QualifiedName, &element.ExternalID, &element.ResourceType,
		&status, &element.Version, &element.Fingerprint, &element.TemplateQualifiedName, &attrs,
		&element.CreatedAt, &element.UpdatedAt)
	if err != nil {
		return nil, err
	}
	element.GUID = guid.String()
	element.Status = catalog.ElementStatus(status)
	if element.Attributes, err = decodeAttributes(attrs); err != nil {
		return nil, err
	}
	return &element, nil
}

func encodeAttributes(attrs map[string]string) ([]byte, error) {
	if len(attrs) == 0 {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode attributes: %w", err)
	}
	return data, nil
}

func decodeAttributes(raw []byte) (map[string]string, error) {
	var attrs map[string]string
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, fmt.Errorf("failed to decode attributes: %w", err)
	}
	if len(attrs) == 0 {
		return nil, nil
	}
	return attrs, nil
}
