package app

import (
	"github.com/stacklok/toolhive-catalog-sync/internal/store"
	"github.com/stacklok/toolhive-catalog-sync/internal/sync/coordinator"
)

// AppComponents groups all application components
//
//nolint:revive // This name is fine
type AppComponents struct {
	// Coordinator runs the reconciliation cycles of every connector
	Coordinator coordinator.Coordinator

	// Store is the metadata store shared by the connectors
	Store store.Store

	watches []directoryWatch
}

// directoryWatch requests a refresh of connector whenever path changes
type directoryWatch struct {
	connector string
	path      string
}
