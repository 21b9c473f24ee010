// Package sqlite provides a metadata store backed by an embedded SQLite database
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/stacklok/toolhive-catalog-sync/internal/catalog"
	"github.com/stacklok/toolhive-catalog-sync/internal/store"
)

//go:embed schema.sql
var schemaSQL string

const elementColumns = `guid, qualified_name, external_id, resource_type, status, version,
	fingerprint, template_qualified_name, attributes, created_at, updated_at`

// sqliteStore implements store.Store on top of database/sql and go-sqlite3
type sqliteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ store.Store = (*sqliteStore)(nil)

// Open creates or opens a SQLite database at the given path and applies the schema.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - 5-second busy timeout for lock contention
//   - a single open connection, SQLite only supports one writer
func Open(path string) (store.Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &sqliteStore{db: db, now: time.Now}, nil
}

func (s *sqliteStore) MissingTypes(ctx context.Context, typeNames []string) ([]string, error) {
	var missing []string
	for _, name := range typeNames {
		var found string
		err := s.db.QueryRowContext(ctx, `SELECT name FROM metadata_types WHERE name = ?`, name).Scan(&found)
		if errors.Is(err, sql.ErrNoRows) {
			missing = append(missing, name)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query type %s: %w", name, err)
		}
	}
	return missing, nil
}

func (s *sqliteStore) ListElements(ctx context.Context, prefix string) ([]*catalog.CatalogElement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+elementColumns+` FROM catalog_elements
		 WHERE substr(qualified_name, 1, length(?1)) = ?1
		 ORDER BY qualified_name`, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list elements: %w", err)
	}
	defer rows.Close()

	result := make([]*catalog.CatalogElement, 0)
	for rows.Next() {
		element, err := scanElement(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, element)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate elements: %w", err)
	}
	return result, nil
}

func (s *sqliteStore) GetTemplate(ctx context.Context, qualifiedName string) (*catalog.Template, error) {
	var (
		tmpl  catalog.Template
		attrs string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT guid, qualified_name, attributes FROM templates WHERE qualified_name = ?`, qualifiedName,
	).Scan(&tmpl.GUID, &tmpl.QualifiedName, &attrs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("template %s: %w", qualifiedName, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template %s: %w", qualifiedName, err)
	}
	if tmpl.Attributes, err = decodeAttributes(attrs); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

func (s *sqliteStore) CreateElement(ctx context.Context, req *store.CreateElementRequest) (*catalog.CatalogElement, error) {
	if req == nil || req.QualifiedName == "" {
		return nil, fmt.Errorf("qualified name is required")
	}
	attrs, err := encodeAttributes(req.Attributes)
	if err != nil {
		return nil, err
	}

	now := s.now().UnixNano()
	guid := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO catalog_elements (`+elementColumns+`)
		 VALUES (?, ?, ?, ?, ?, 1, ?, ?, ?, ?, ?)`,
		guid, req.QualifiedName, req.ExternalID, req.ResourceType, string(catalog.StatusActive),
		req.Fingerprint, req.TemplateQualifiedName, attrs, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("element %s: %w", req.QualifiedName, store.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("failed to create element %s: %w", req.QualifiedName, err)
	}
	return s.getElement(ctx, guid)
}

func (s *sqliteStore) UpdateElement(
	ctx context.Context, guid string, req *store.UpdateElementRequest,
) (*catalog.CatalogElement, error) {
	if req == nil {
		return nil, fmt.Errorf("update request is required")
	}
	attrs, err := encodeAttributes(req.Attributes)
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE catalog_elements
		 SET fingerprint = ?, attributes = ?, status = ?, version = version + 1, updated_at = ?
		 WHERE guid = ? AND (? = 0 OR version = ?)`,
		req.Fingerprint, attrs, string(catalog.StatusActive), s.now().UnixNano(),
		guid, req.ExpectedVersion, req.ExpectedVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to update element %s: %w", guid, err)
	}
	if err := s.checkAffected(ctx, res, guid); err != nil {
		return nil, err
	}
	return s.getElement(ctx, guid)
}

func (s *sqliteStore) ArchiveElement(ctx context.Context, guid string) (*catalog.CatalogElement, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE catalog_elements SET status = ?, version = version + 1, updated_at = ? WHERE guid = ?`,
		string(catalog.StatusArchived), s.now().UnixNano(), guid)
	if err != nil {
		return nil, fmt.Errorf("failed to archive element %s: %w", guid, err)
	}
	if err := s.checkAffected(ctx, res, guid); err != nil {
		return nil, err
	}
	return s.getElement(ctx, guid)
}

func (s *sqliteStore) DeleteElement(ctx context.Context, guid string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM catalog_elements WHERE guid = ?`, guid)
	if err != nil {
		return fmt.Errorf("failed to delete element %s: %w", guid, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("element %s: %w", guid, store.ErrNotFound)
	}
	return nil
}

func (s *sqliteStore) RegisterTypes(ctx context.Context, typeNames []string) error {
	for _, name := range typeNames {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO metadata_types (name) VALUES (?) ON CONFLICT (name) DO NOTHING`, name); err != nil {
			return fmt.Errorf("failed to register type %s: %w", name, err)
		}
	}
	return nil
}

func (s *sqliteStore) PutTemplate(ctx context.Context, template *catalog.Template) error {
	if template == nil || template.QualifiedName == "" {
		return fmt.Errorf("template qualified name is required")
	}
	attrs, err := encodeAttributes(template.Attributes)
	if err != nil {
		return err
	}
	guid := template.GUID
	if guid == "" {
		guid = uuid.NewString()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO templates (guid, qualified_name, attributes) VALUES (?, ?, ?)
		 ON CONFLICT (qualified_name) DO UPDATE SET attributes = excluded.attributes`,
		guid, template.QualifiedName, attrs)
	if err != nil {
		return fmt.Errorf("failed to store template %s: %w", template.QualifiedName, err)
	}
	return nil
}

func (s *sqliteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) getElement(ctx context.Context, guid string) (*catalog.CatalogElement, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+elementColumns+` FROM catalog_elements WHERE guid = ?`, guid)
	element, err := scanElement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("element %s: %w", guid, store.ErrNotFound)
	}
	return element, err
}

// checkAffected distinguishes a missing element from a version mismatch when an update touched no rows
func (s *sqliteStore) checkAffected(ctx context.Context, res sql.Result, guid string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.getElement(ctx, guid); err != nil {
		return err
	}
	return fmt.Errorf("element %s: %w", guid, store.ErrVersionConflict)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanElement(row rowScanner) (*catalog.CatalogElement, error) {
	var (
		element catalog.CatalogElement
		status  string
		attrs   string
		created int64
		updated int64
	)
	err := row.Scan(&element.GUID, &element.QualifiedName, &element.ExternalID, &element.ResourceType,
		&status, &element.Version, &element.Fingerprint, &element.TemplateQualifiedName, &attrs,
		&created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan element: %w", err)
	}
	element.Status = catalog.ElementStatus(status)
	element.CreatedAt = time.Unix(0, created).UTC()
	element.UpdatedAt = time.Unix(0, updated).UTC()
	if element.Attributes, err = decodeAttributes(attrs); err != nil {
		return nil, err
	}
	return &element, nil
}

func encodeAttributes(attrs map[string]string) (string, error) {
	if len(attrs) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("failed to encode attributes: %w", err)
	}
	return string(data), nil
}

func decodeAttributes(raw string) (map[string]string, error) {
	var attrs map[string]string
	if err := json.Unmarshal([]byte(raw), &attrs); err != nil {
		return nil, fmt.Errorf("failed to decode attributes: %w", err)
	}
	if len(attrs) == 0 {
		return nil, nil
	}
	return attrs, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
