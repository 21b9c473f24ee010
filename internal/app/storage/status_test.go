package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/toolhive-catalog-sync/internal/config"
	"github.com/stacklok/toolhive-catalog-sync/internal/status"
)

func TestLoadCycleStatuses(t *testing.T) {
	t.Parallel()

	t.Run("nil config", func(t *testing.T) {
		t.Parallel()
		_, err := LoadCycleStatuses(context.Background(), nil)
		require.Error(t, err)
	})

	t.Run("database without settings", func(t *testing.T) {
		t.Parallel()
		cfg := &config.Config{Storage: &config.StorageConfig{Type: config.StorageTypeDatabase}}
		_, err := LoadCycleStatuses(context.Background(), cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database configuration is required")
	})

	t.Run("nothing persisted yet", func(t *testing.T) {
		t.Parallel()
		statuses, err := LoadCycleStatuses(context.Background(), &config.Config{DataDir: t.TempDir()})
		require.NoError(t, err)
		assert.Empty(t, statuses)
	})

	t.Run("reads what the file factory wrote", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		cfg := &config.Config{
			DataDir: t.TempDir(),
			Connectors: []config.ConnectorConfig{
				{Name: "topics", Namespace: "kafka", ResourceType: "topic"},
				{Name: "schemas", Namespace: "registry", ResourceType: "schema"},
			},
		}

		factory, err := NewFileFactory(cfg)
		require.NoError(t, err)
		svc, err := factory.CreateStateService(ctx)
		require.NoError(t, err)
		require.NoError(t, svc.Initialize(ctx, cfg.Connectors))
		require.NoError(t, svc.UpdateCycleStatus(ctx, "topics", &status.CycleStatus{
			Phase:      status.CyclePhaseComplete,
			CycleCount: 3,
		}))

		statuses, err := LoadCycleStatuses(ctx, cfg)
		require.NoError(t, err)
		require.Len(t, statuses, 2)
		assert.Equal(t, status.CyclePhaseComplete, statuses["topics"].Phase)
		assert.Equal(t, int64(3), statuses["topics"].CycleCount)
		assert.Equal(t, status.CyclePhasePending, statuses["schemas"].Phase)
	})
}
