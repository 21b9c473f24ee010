package sync

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/stacklok/toolhive-catalog-sync/internal/catalog"
	"github.com/stacklok/toolhive-catalog-sync/internal/store"
)

// Index is the snapshot of the elements a connector owns, keyed by qualified name.
// It is rebuilt from the store at the start of every cycle and never mutated afterwards.
type Index struct {
	prefix   string
	elements map[string]*catalog.CatalogElement
	names    []string
}

// LoadIndex lists every element under prefix, ARCHIVED ones included, in one store call
func LoadIndex(ctx context.Context, st store.Store, prefix string) (*Index, error) {
	elements, err := st.ListElements(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list elements with prefix %q: %w", prefix, err)
	}
	return NewIndex(prefix, elements)
}

// NewIndex builds an index from a list of elements. Elements outside prefix and
// duplicate qualified names are rejected.
func NewIndex(prefix string, elements []*catalog.CatalogElement) (*Index, error) {
	idx := &Index{
		prefix:   prefix,
		elements: make(map[string]*catalog.CatalogElement, len(elements)),
		names:    make([]string, 0, len(elements)),
	}
	for _, element := range elements {
		if element == nil {
			continue
		}
		if !strings.HasPrefix(element.QualifiedName, prefix) {
			return nil, fmt.Errorf("element %q is outside prefix %q", element.QualifiedName, prefix)
		}
		if _, exists := idx.elements[element.QualifiedName]; exists {
			return nil, fmt.Errorf("duplicate element for qualified name %q", element.QualifiedName)
		}
		idx.elements[element.QualifiedName] = element
		idx.names = append(idx.names, element.QualifiedName)
	}
	slices.Sort(idx.names)
	return idx, nil
}

// Get returns the element with the given qualified name
func (idx *Index) Get(qualifiedName string) (*catalog.CatalogElement, bool) {
	if idx == nil {
		return nil, false
	}
	element, ok := idx.elements[qualifiedName]
	return element, ok
}

// Len returns the number of indexed elements
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.elements)
}

// Names returns the indexed qualified names in sorted order
func (idx *Index) Names() []string {
	if idx == nil {
		return nil
	}
	return slices.Clone(idx.names)
}

// Prefix returns the qualified name prefix the index was loaded for
func (idx *Index) Prefix() string {
	if idx == nil {
		return ""
	}
	return idx.prefix
}

// CountByStatus returns the number of elements per status
func (idx *Index) CountByStatus() map[catalog.ElementStatus]int {
	counts := map[catalog.ElementStatus]int{
		catalog.StatusActive:   0,
		catalog.StatusArchived: 0,
	}
	if idx == nil {
		return counts
	}
	for _, element := range idx.elements {
		counts[element.Status]++
	}
	return counts
}
