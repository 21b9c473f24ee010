// Package catalog defines the data model shared by the reconciliation engine:
// records enumerated from an external system, the catalog elements that
// describe them in the metadata store, and the templates used to create them.
package catalog

import (
	"fmt"
	"strings"
	"time"
)

// ElementStatus is the lifecycle status of a catalog element
type ElementStatus string

const (
	// StatusActive means the element describes a resource that currently exists
	StatusActive ElementStatus = "ACTIVE"

	// StatusArchived means the resource is gone but the element is retained for lineage
	StatusArchived ElementStatus = "ARCHIVED"
)

// RemovalPolicy selects what happens to an element whose resource disappeared
type RemovalPolicy string

const (
	// RemovalPolicyArchive keeps the element with status ARCHIVED
	RemovalPolicyArchive RemovalPolicy = "archive"

	// RemovalPolicyDelete removes the element from the store
	RemovalPolicyDelete RemovalPolicy = "delete"
)

// QualifiedNameSeparator joins the parts of a qualified name
const QualifiedNameSeparator = "::"

// ExternalRecord is one resource observed in the external system during a cycle
type ExternalRecord struct {
	// Name is unique within the external system
	Name string `json:"name" yaml:"name"`

	// Fingerprint is a content hash or last-modified marker
	Fingerprint string `json:"fingerprint" yaml:"fingerprint"`

	// Present is false when the source reports the resource as no longer existing
	Present bool `json:"present" yaml:"present"`

	// Attributes are copied onto the catalog element on create and update
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// CatalogElement is the metadata store representation of an external resource
//
//nolint:revive // catalog.CatalogElement reads better than catalog.Element in the store API
type CatalogElement struct {
	GUID          string        `json:"guid"`
	QualifiedName string        `json:"qualifiedName"`
	ExternalID    string        `json:"externalId"`
	ResourceType  string        `json:"resourceType"`
	Status        ElementStatus `json:"status"`

	// Version is incremented by the store on every mutation
	Version int64 `json:"version"`

	// Fingerprint is the external content marker recorded at the last create or update
	Fingerprint string `json:"fingerprint"`

	// TemplateQualifiedName records the template used to create the element, if any
	TemplateQualifiedName string `json:"templateQualifiedName,omitempty"`

	Attributes map[string]string `json:"attributes,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// IsActive reports whether the element is ACTIVE
func (e *CatalogElement) IsActive() bool {
	return e != nil && e.Status == StatusActive
}

// Template is a pre-existing element pattern applied when creating new elements
type Template struct {
	GUID          string            `json:"guid" yaml:"guid,omitempty"`
	QualifiedName string            `json:"qualifiedName" yaml:"qualifiedName"`
	Attributes    map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// QualifiedName derives the qualified name of the element describing an external resource.
// It depends only on its arguments so the same resource maps to the same element every cycle.
func QualifiedName(namespace, resourceType, externalName string) string {
	return QualifiedNamePrefix(namespace, resourceType) + externalName
}

// QualifiedNamePrefix returns the prefix shared by every element a connector owns
func QualifiedNamePrefix(namespace, resourceType string) string {
	return namespace + QualifiedNameSeparator + resourceType + QualifiedNameSeparator
}

// ExternalNameFromQualifiedName reverses QualifiedName for the given prefix
func ExternalNameFromQualifiedName(prefix, qualifiedName string) (string, error) {
	if !strings.HasPrefix(qualifiedName, prefix) {
		return "", fmt.Errorf("qualified name %q does not start with %q", qualifiedName, prefix)
	}
	return strings.TrimPrefix(qualifiedName, prefix), nil
}

// MergeAttributes returns a new map containing base overlaid with overrides.
// Template attributes are the base when creating from a template.
func MergeAttributes(base, overrides map[string]string) map[string]string {
	if len(base) == 0 && len(overrides) == 0 {
		return nil
	}
	merged := make(map[string]string, len(base)+len(overrides))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}
