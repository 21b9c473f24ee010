package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/toolhive-catalog-sync/database"
	"github.com/stacklok/toolhive-catalog-sync/internal/config"
	"github.com/stacklok/toolhive-catalog-sync/internal/status"
)

func TestDBStateService(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pool, cleanup := database.SetupTestDB(t)
	t.Cleanup(cleanup)

	service := NewDBStateService(pool)

	require.NoError(t, service.Initialize(ctx, []config.ConnectorConfig{connector("topics"), connector("folders")}))

	statuses, err := service.ListCycleStatuses(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.Equal(t, status.CyclePhasePending, statuses["topics"].Phase)

	updated, err := service.UpdateStatusAtomically(ctx, "topics", func(s *status.CycleStatus) bool {
		s.Phase = status.CyclePhaseRunning
		s.CycleCount++
		return true
	})
	require.NoError(t, err)
	assert.True(t, updated)

	// Restart with one connector removed from the configuration
	require.NoError(t, service.Initialize(ctx, []config.ConnectorConfig{connector("topics")}))

	got, err := service.GetCycleStatus(ctx, "topics")
	require.NoError(t, err)
	assert.Equal(t, status.CyclePhaseFailed, got.Phase)
	assert.Equal(t, int64(1), got.CycleCount)

	_, err = service.GetCycleStatus(ctx, "folders")
	assert.ErrorIs(t, err, ErrConnectorNotFound)

	require.NoError(t, service.UpdateCycleStatus(ctx, "topics", &status.CycleStatus{Phase: status.CyclePhaseComplete}))
	got, err = service.GetCycleStatus(ctx, "topics")
	require.NoError(t, err)
	assert.Equal(t, status.CyclePhaseComplete, got.Phase)

	_, err = service.UpdateStatusAtomically(ctx, "folders", func(*status.CycleStatus) bool { return true })
	assert.ErrorIs(t, err, ErrConnectorNotFound)
}
