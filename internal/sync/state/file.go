package state

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/stacklok/toolhive-catalog-sync/internal/config"
	"github.com/stacklok/toolhive-catalog-sync/internal/status"
)

type fileStateService struct {
	statusPersistence status.StatusPersistence

	// Thread-safe status management (per-connector)
	mu             sync.RWMutex
	cachedStatuses map[string]*status.CycleStatus
}

// NewFileStateService creates a new file-based connector state service
func NewFileStateService(statusPersistence status.StatusPersistence) ConnectorStateService {
	return &fileStateService{
		statusPersistence: statusPersistence,
		cachedStatuses:    make(map[string]*status.CycleStatus),
	}
}

func (f *fileStateService) Initialize(ctx context.Context, connectors []config.ConnectorConfig) error {
	loaded := make(map[string]*status.CycleStatus, len(connectors))
	for i := range connectors {
		conn := &connectors[i]
		loaded[conn.Name] = f.loadOrInitializeStatus(ctx, conn)
	}

	f.mu.Lock()
	f.cachedStatuses = loaded
	f.mu.Unlock()
	return nil
}

func (f *fileStateService) ListCycleStatuses(_ context.Context) (map[string]*status.CycleStatus, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	result := make(map[string]*status.CycleStatus, len(f.cachedStatuses))
	for name, cycleStatus := range f.cachedStatuses {
		result[name] = cycleStatus.Clone()
	}
	return result, nil
}

func (f *fileStateService) GetCycleStatus(_ context.Context, connector string) (*status.CycleStatus, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	cycleStatus, exists := f.cachedStatuses[connector]
	if !exists || cycleStatus == nil {
		return nil, fmt.Errorf("%w: %s", ErrConnectorNotFound, connector)
	}
	return cycleStatus.Clone(), nil
}

func (f *fileStateService) UpdateStatusAtomically(
	ctx context.Context,
	connector string,
	updateFn func(cycleStatus *status.CycleStatus) bool,
) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	current, exists := f.cachedStatuses[connector]
	if !exists || current == nil {
		return false, fmt.Errorf("%w: %s", ErrConnectorNotFound, connector)
	}

	// Work on a copy so a failed save leaves the cache untouched
	cycleStatus := current.Clone()
	if !updateFn(cycleStatus) {
		return false, nil
	}
	if err := f.statusPersistence.SaveStatus(ctx, connector, cycleStatus); err != nil {
		return false, err
	}
	f.cachedStatuses[connector] = cycleStatus
	return true, nil
}

func (f *fileStateService) UpdateCycleStatus(ctx context.Context, connector string, cycleStatus *status.CycleStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored := cycleStatus.Clone()
	if err := f.statusPersistence.SaveStatus(ctx, connector, stored); err != nil {
		return err
	}
	f.cachedStatuses[connector] = stored
	return nil
}

func (f *fileStateService) loadOrInitializeStatus(ctx context.Context, conn *config.ConnectorConfig) *status.CycleStatus {
	cycleStatus, err := f.statusPersistence.LoadStatus(ctx, conn.Name)
	if err != nil {
		slog.Warn("Failed to load cycle status, initializing with defaults",
			"connector", conn.Name,
			"error", err)
		cycleStatus = nil
	}

	// Note that interrupted cycle recovery assumes that only one process at a
	// time runs a given connector against this data directory.
	switch {
	case cycleStatus == nil || cycleStatus.Phase == "":
		slog.Info("No previous cycle status found, initializing with defaults", "connector", conn.Name)
		cycleStatus = initialStatus(conn)
		if err := f.statusPersistence.SaveStatus(ctx, conn.Name, cycleStatus); err != nil {
			slog.Warn("Failed to persist default cycle status",
				"connector", conn.Name,
				"error", err)
		}
	case recoverStatus(conn, cycleStatus):
		if cycleStatus.Phase == status.CyclePhaseFailed {
			slog.Warn("Previous cycle was interrupted, resetting to Failed", "connector", conn.Name)
		}
		if err := f.statusPersistence.SaveStatus(ctx, conn.Name, cycleStatus); err != nil {
			slog.Warn("Failed to persist corrected cycle status",
				"connector", conn.Name,
				"error", err)
		}
	}

	if cycleStatus.LastSuccess != nil {
		slog.Info("Loaded cycle status",
			"connector", conn.Name,
			"phase", cycleStatus.Phase,
			"last_success", cycleStatus.LastSuccess.Format(time.RFC3339),
			"cycles", cycleStatus.CycleCount)
	} else {
		slog.Info("Cycle status loaded, no previous successful cycle",
			"connector", conn.Name,
			"phase", cycleStatus.Phase)
	}
	return cycleStatus
}
