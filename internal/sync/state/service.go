// Package state contains logic for managing connector cycle state which the service persists.
package state

import (
	"context"
	"errors"
	"log/slog"

	"github.com/stacklok/toolhive-catalog-sync/internal/config"
	"github.com/stacklok/toolhive-catalog-sync/internal/status"
	"github.com/stacklok/toolhive-catalog-sync/internal/versions"
)

// ErrConnectorNotFound is returned when no state exists for a connector
var ErrConnectorNotFound = errors.New("connector not found")

// ConnectorStateService provides methods for inspecting and updating the cycle state of connectors.
//
//go:generate mockgen -destination=mocks/mock_connector_state_service.go -package=mocks github.com/stacklok/toolhive-catalog-sync/internal/sync/state ConnectorStateService
type ConnectorStateService interface {
	// Initialize populates the state store with the set of connectors.
	// It is intended that this is called at application startup. Existing
	// state is kept, except that a cycle left Running by a previous process
	// is marked Failed.
	Initialize(ctx context.Context, connectors []config.ConnectorConfig) error
	// ListCycleStatuses lists the status of every known connector.
	ListCycleStatuses(ctx context.Context) (map[string]*status.CycleStatus, error)
	// GetCycleStatus returns the status of the named connector, or ErrConnectorNotFound.
	GetCycleStatus(ctx context.Context, connector string) (*status.CycleStatus, error)
	// UpdateCycleStatus overrides the status of the named connector.
	UpdateCycleStatus(ctx context.Context, connector string, cycleStatus *status.CycleStatus) error
	// UpdateStatusAtomically fetches the current status, applies updateFn to it
	// and stores the result if updateFn reports a change, all as a single atomic
	// action. The returned boolean is the value returned by updateFn.
	UpdateStatusAtomically(
		ctx context.Context,
		connector string,
		updateFn func(cycleStatus *status.CycleStatus) bool,
	) (bool, error)
}

// initialStatus returns the status a connector starts with when nothing was persisted
func initialStatus(conn *config.ConnectorConfig) *status.CycleStatus {
	return &status.CycleStatus{
		Phase:    status.CyclePhasePending,
		Message:  "No cycle has run yet",
		Interval: conn.GetInterval().String(),
	}
}

// recoverStatus adapts a persisted status to the current configuration.
// It reports whether the status was changed.
func recoverStatus(conn *config.ConnectorConfig, cycleStatus *status.CycleStatus) bool {
	if versions.IsNewerThanRunning(cycleStatus.ServiceVersion) {
		slog.Warn("Cycle status was written by a newer release",
			"connector", conn.Name,
			"status_version", cycleStatus.ServiceVersion,
			"running_version", versions.Version)
	}

	changed := false
	if cycleStatus.Phase == status.CyclePhaseRunning {
		cycleStatus.Phase = status.CyclePhaseFailed
		cycleStatus.Message = "Previous cycle was interrupted"
		changed = true
	}
	if interval := conn.GetInterval().String(); cycleStatus.Interval != interval {
		cycleStatus.Interval = interval
		changed = true
	}
	return changed
}
