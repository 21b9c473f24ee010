// Package memory provides an in-memory implementation of the metadata store
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stacklok/toolhive-catalog-sync/internal/catalog"
	"github.com/stacklok/toolhive-catalog-sync/internal/store"
)

// memStore implements store.Store with maps guarded by a single lock
type memStore struct {
	mu sync.RWMutex

	types     map[string]struct{}
	templates map[string]*catalog.Template
	// elements is keyed by GUID, byName indexes qualified name to GUID
	elements map[string]*catalog.CatalogElement
	byName   map[string]string

	now func() time.Time
}

var _ store.Store = (*memStore)(nil)

// Option configures the in-memory store
type Option func(*memStore)

// WithTypes pre-registers metadata types
func WithTypes(typeNames ...string) Option {
	return func(s *memStore) {
		for _, name := range typeNames {
			s.types[name] = struct{}{}
		}
	}
}

// WithTemplates pre-registers templates
func WithTemplates(templates ...*catalog.Template) Option {
	return func(s *memStore) {
		for _, tmpl := range templates {
			s.templates[tmpl.QualifiedName] = copyTemplate(tmpl)
		}
	}
}

// WithClock overrides the clock used for timestamps
func WithClock(now func() time.Time) Option {
	return func(s *memStore) {
		s.now = now
	}
}

// New creates an empty in-memory store
func New(opts ...Option) store.Store {
	s := &memStore{
		types:     make(map[string]struct{}),
		templates: make(map[string]*catalog.Template),
		elements:  make(map[string]*catalog.CatalogElement),
		byName:    make(map[string]string),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *memStore) MissingTypes(_ context.Context, typeNames []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var missing []string
	for _, name := range typeNames {
		if _, ok := s.types[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing, nil
}

func (s *memStore) ListElements(_ context.Context, prefix string) ([]*catalog.CatalogElement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*catalog.CatalogElement, 0)
	for _, element := range s.elements {
		if strings.HasPrefix(element.QualifiedName, prefix) {
			result = append(result, copyElement(element))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].QualifiedName < result[j].QualifiedName
	})
	return result, nil
}

func (s *memStore) GetTemplate(_ context.Context, qualifiedName string) (*catalog.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tmpl, ok := s.templates[qualifiedName]
	if !ok {
		return nil, fmt.Errorf("template %s: %w", qualifiedName, store.ErrNotFound)
	}
	return copyTemplate(tmpl), nil
}

func (s *memStore) CreateElement(_ context.Context, req *store.CreateElementRequest) (*catalog.CatalogElement, error) {
	if req == nil || req.QualifiedName == "" {
		return nil, fmt.Errorf("qualified name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byName[req.QualifiedName]; exists {
		return nil, fmt.Errorf("element %s: %w", req.QualifiedName, store.ErrAlreadyExists)
	}

	now := s.now()
	element := &catalog.CatalogElement{
		GUID:                  uuid.NewString(),
		QualifiedName:         req.QualifiedName,
		ExternalID:            req.ExternalID,
		ResourceType:          req.ResourceType,
		Status:                catalog.StatusActive,
		Version:               1,
		Fingerprint:           req.Fingerprint,
		TemplateQualifiedName: req.TemplateQualifiedName,
		Attributes:            maps.Clone(req.Attributes),
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	s.elements[element.GUID] = element
	s.byName[element.QualifiedName] = element.GUID

	return copyElement(element), nil
}

func (s *memStore) UpdateElement(
	_ context.Context, guid string, req *store.UpdateElementRequest,
) (*catalog.CatalogElement, error) {
	if req == nil {
		return nil, fmt.Errorf("update request is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	element, ok := s.elements[guid]
	if !ok {
		return nil, fmt.Errorf("element %s: %w", guid, store.ErrNotFound)
	}
	if req.ExpectedVersion != 0 && req.ExpectedVersion != element.Version {
		return nil, fmt.Errorf("element %s at version %d, expected %d: %w",
			guid, element.Version, req.ExpectedVersion, store.ErrVersionConflict)
	}

	element.Fingerprint = req.Fingerprint
	element.Attributes = maps.Clone(req.Attributes)
	element.Status = catalog.StatusActive
	element.Version++
	element.UpdatedAt = s.now()

	return copyElement(element), nil
}

func (s *memStore) ArchiveElement(_ context.Context, guid string) (*catalog.CatalogElement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	element, ok := s.elements[guid]
	if !ok {
		return nil, fmt.Errorf("element %s: %w", guid, store.ErrNotFound)
	}

	element.Status = catalog.StatusArchived
	element.Version++
	element.UpdatedAt = s.now()

	return copyElement(element), nil
}

func (s *memStore) DeleteElement(_ context.Context, guid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	element, ok := s.elements[guid]
	if !ok {
		return fmt.Errorf("element %s: %w", guid, store.ErrNotFound)
	}
	delete(s.byName, element.QualifiedName)
	delete(s.elements, guid)
	return nil
}

func (s *memStore) RegisterTypes(_ context.Context, typeNames []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range typeNames {
		s.types[name] = struct{}{}
	}
	return nil
}

func (s *memStore) PutTemplate(_ context.Context, template *catalog.Template) error {
	if template == nil || template.QualifiedName == "" {
		return fmt.Errorf("template qualified name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := copyTemplate(template)
	if stored.GUID == "" {
		stored.GUID = uuid.NewString()
	}
	s.templates[stored.QualifiedName] = stored
	return nil
}

func (*memStore) Close() error {
	return nil
}

func copyElement(e *catalog.CatalogElement) *catalog.CatalogElement {
	c := *e
	c.Attributes = maps.Clone(e.Attributes)
	return &c
}

func copyTemplate(t *catalog.Template) *catalog.Template {
	c := *t
	c.Attributes = maps.Clone(t.Attributes)
	return &c
}
