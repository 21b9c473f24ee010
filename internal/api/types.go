// Package api provides the operations HTTP API of the catalog sync service.
package api

import "github.com/stacklok/toolhive-catalog-sync/internal/sync/coordinator"

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string `json:"status" example:"healthy"`
}

// ReadinessResponse represents the readiness check response
type ReadinessResponse struct {
	Status string `json:"status" example:"ready"`

	// Stopped lists connectors that are no longer reconciling
	Stopped []string `json:"stopped,omitempty"`
}

// ConnectorListResponse represents the connector list response
type ConnectorListResponse struct {
	Connectors []coordinator.ConnectorStatus `json:"connectors"`
}

// RefreshResponse represents the response to a refresh request
type RefreshResponse struct {
	Connector string `json:"connector"`
	Status    string `json:"status" example:"refresh requested"`
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error string `json:"error"`
}
