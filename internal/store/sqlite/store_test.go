package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/toolhive-catalog-sync/internal/store"
	"github.com/stacklok/toolhive-catalog-sync/internal/store/storetest"
)

func TestSQLiteStore(t *testing.T) {
	t.Parallel()

	storetest.Run(t, func(t *testing.T) store.Store {
		t.Helper()
		s, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestSQLiteStore_Reopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "catalog.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.RegisterTypes(ctx, []string{"KafkaTopic"}))
	created, err := s.CreateElement(ctx, &store.CreateElementRequest{
		QualifiedName: "ns::topic::orders",
		Fingerprint:   "v1",
		Attributes:    map[string]string{"owner": "team-a"},
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Schema application is idempotent and data survives a reopen
	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	missing, err := s.MissingTypes(ctx, []string{"KafkaTopic"})
	require.NoError(t, err)
	assert.Empty(t, missing)

	listed, err := s.ListElements(ctx, "ns::topic::")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, created.GUID, listed[0].GUID)
	assert.Equal(t, "team-a", listed[0].Attributes["owner"])
	assert.Equal(t, created.CreatedAt, listed[0].CreatedAt)
}
