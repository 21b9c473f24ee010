// Package store defines the metadata store client consumed by the reconciliation
// engine. Backends live in the memory, sqlite and db subpackages.
package store

import (
	"context"
	"errors"

	"github.com/stacklok/toolhive-catalog-sync/internal/catalog"
)

var (
	// ErrNotFound is returned when an element or template does not exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when an element with the same qualified name exists
	ErrAlreadyExists = errors.New("already exists")
	// ErrVersionConflict is returned when an update's expected version does not match
	ErrVersionConflict = errors.New("version conflict")
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=store.go Store

// Store is the metadata store client used by the reconciliation engine
type Store interface {
	// MissingTypes returns the subset of typeNames not yet defined in the store.
	// An empty result means every type exists.
	MissingTypes(ctx context.Context, typeNames []string) ([]string, error)

	// ListElements returns every element whose qualified name starts with prefix,
	// including ARCHIVED ones, in a single query.
	ListElements(ctx context.Context, prefix string) ([]*catalog.CatalogElement, error)

	// GetTemplate looks a template up by qualified name. Returns ErrNotFound if absent.
	GetTemplate(ctx context.Context, qualifiedName string) (*catalog.Template, error)

	// CreateElement creates a new ACTIVE element. Returns ErrAlreadyExists if the
	// qualified name is taken.
	CreateElement(ctx context.Context, req *CreateElementRequest) (*catalog.CatalogElement, error)

	// UpdateElement replaces the fingerprint and attributes of an element and sets it ACTIVE.
	UpdateElement(ctx context.Context, guid string, req *UpdateElementRequest) (*catalog.CatalogElement, error)

	// ArchiveElement marks an element ARCHIVED, keeping it for lineage
	ArchiveElement(ctx context.Context, guid string) (*catalog.CatalogElement, error)

	// DeleteElement removes an element
	DeleteElement(ctx context.Context, guid string) error

	// RegisterTypes defines metadata types. Existing types are left untouched.
	RegisterTypes(ctx context.Context, typeNames []string) error

	// PutTemplate creates or replaces a template
	PutTemplate(ctx context.Context, template *catalog.Template) error

	// Close releases the resources held by the store
	Close() error
}

// CreateElementRequest carries the fields of a new element
type CreateElementRequest struct {
	QualifiedName string
	ExternalID    string
	ResourceType  string
	Fingerprint   string
	Attributes    map[string]string

	// TemplateQualifiedName is recorded as lineage when the element is created from a template
	TemplateQualifiedName string
}

// UpdateElementRequest carries the fields replaced by an update
type UpdateElementRequest struct {
	Fingerprint string
	Attributes  map[string]string

	// ExpectedVersion guards against concurrent writers. Zero disables the check.
	ExpectedVersion int64
}
