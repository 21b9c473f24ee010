package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/toolhive-catalog-sync/internal/config"
	"github.com/stacklok/toolhive-catalog-sync/internal/status"
)

func TestNewStateService(t *testing.T) {
	t.Parallel()

	persistence := status.NewFileStatusPersistence(t.TempDir())

	tests := []struct {
		name        string
		storageType string
		persistence status.StatusPersistence
		wantErr     string
		wantFile    bool
	}{
		{name: "memory uses files", storageType: config.StorageTypeMemory, persistence: persistence, wantFile: true},
		{name: "sqlite uses files", storageType: config.StorageTypeSQLite, persistence: persistence, wantFile: true},
		{name: "database requires a pool", storageType: config.StorageTypeDatabase, wantErr: "database pool is required"},
		{name: "files require persistence", storageType: config.StorageTypeMemory, wantErr: "status persistence is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := &config.Config{Storage: &config.StorageConfig{Type: tt.storageType}}
			service, err := NewStateService(cfg, tt.persistence, nil)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			_, isFile := service.(*fileStateService)
			assert.Equal(t, tt.wantFile, isFile)
		})
	}
}
