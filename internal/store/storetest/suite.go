// Package storetest contains a behavioural test suite shared by every store backend
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/toolhive-catalog-sync/internal/catalog"
	"github.com/stacklok/toolhive-catalog-sync/internal/store"
)

// Factory returns a fresh, empty store for a single subtest
type Factory func(t *testing.T) store.Store

// Run executes the shared store suite against the backend built by newStore
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("MissingTypes", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		missing, err := s.MissingTypes(ctx, []string{"KafkaTopic", "DataFolder"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"KafkaTopic", "DataFolder"}, missing)

		require.NoError(t, s.RegisterTypes(ctx, []string{"KafkaTopic"}))
		// Registering twice is a no-op
		require.NoError(t, s.RegisterTypes(ctx, []string{"KafkaTopic"}))

		missing, err = s.MissingTypes(ctx, []string{"KafkaTopic", "DataFolder"})
		require.NoError(t, err)
		assert.Equal(t, []string{"DataFolder"}, missing)

		require.NoError(t, s.RegisterTypes(ctx, []string{"DataFolder"}))
		missing, err = s.MissingTypes(ctx, []string{"KafkaTopic", "DataFolder"})
		require.NoError(t, err)
		assert.Empty(t, missing)
	})

	t.Run("Templates", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.GetTemplate(ctx, "templates::topic")
		require.ErrorIs(t, err, store.ErrNotFound)

		require.NoError(t, s.PutTemplate(ctx, &catalog.Template{
			QualifiedName: "templates::topic",
			Attributes:    map[string]string{"owner": "platform"},
		}))

		tmpl, err := s.GetTemplate(ctx, "templates::topic")
		require.NoError(t, err)
		assert.Equal(t, "templates::topic", tmpl.QualifiedName)
		assert.NotEmpty(t, tmpl.GUID)
		assert.Equal(t, "platform", tmpl.Attributes["owner"])
	})

	t.Run("ElementLifecycle", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		created, err := s.CreateElement(ctx, &store.CreateElementRequest{
			QualifiedName:         "ns::topic::orders",
			ExternalID:            "orders",
			ResourceType:          "topic",
			Fingerprint:           "v1",
			Attributes:            map[string]string{"partitions": "3"},
			TemplateQualifiedName: "templates::topic",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, created.GUID)
		assert.Equal(t, catalog.StatusActive, created.Status)
		assert.Equal(t, int64(1), created.Version)
		assert.Equal(t, "templates::topic", created.TemplateQualifiedName)

		_, err = s.CreateElement(ctx, &store.CreateElementRequest{
			QualifiedName: "ns::topic::orders",
			ExternalID:    "orders",
			ResourceType:  "topic",
		})
		require.ErrorIs(t, err, store.ErrAlreadyExists)

		updated, err := s.UpdateElement(ctx, created.GUID, &store.UpdateElementRequest{
			Fingerprint:     "v2",
			Attributes:      map[string]string{"partitions": "6"},
			ExpectedVersion: created.Version,
		})
		require.NoError(t, err)
		assert.Equal(t, "v2", updated.Fingerprint)
		assert.Equal(t, "6", updated.Attributes["partitions"])
		assert.Greater(t, updated.Version, created.Version)

		_, err = s.UpdateElement(ctx, created.GUID, &store.UpdateElementRequest{
			Fingerprint:     "v3",
			ExpectedVersion: created.Version,
		})
		require.ErrorIs(t, err, store.ErrVersionConflict)

		archived, err := s.ArchiveElement(ctx, created.GUID)
		require.NoError(t, err)
		assert.Equal(t, catalog.StatusArchived, archived.Status)

		// Archived elements stay visible to prefix listings
		listed, err := s.ListElements(ctx, "ns::topic::")
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, catalog.StatusArchived, listed[0].Status)

		// An update restores the element
		restored, err := s.UpdateElement(ctx, created.GUID, &store.UpdateElementRequest{Fingerprint: "v4"})
		require.NoError(t, err)
		assert.Equal(t, catalog.StatusActive, restored.Status)

		require.NoError(t, s.DeleteElement(ctx, created.GUID))
		require.ErrorIs(t, s.DeleteElement(ctx, created.GUID), store.ErrNotFound)

		_, err = s.ArchiveElement(ctx, created.GUID)
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = s.UpdateElement(ctx, created.GUID, &store.UpdateElementRequest{Fingerprint: "v5"})
		require.ErrorIs(t, err, store.ErrNotFound)

		// The qualified name is free again
		_, err = s.CreateElement(ctx, &store.CreateElementRequest{
			QualifiedName: "ns::topic::orders",
			ExternalID:    "orders",
			ResourceType:  "topic",
		})
		require.NoError(t, err)
	})

	t.Run("ListElementsByPrefix", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for _, qn := range []string{"a::topic::x", "a::topic::y", "a::folder::x", "b::topic::x"} {
			_, err := s.CreateElement(ctx, &store.CreateElementRequest{QualifiedName: qn, ResourceType: "topic"})
			require.NoError(t, err)
		}

		listed, err := s.ListElements(ctx, "a::topic::")
		require.NoError(t, err)
		names := make([]string, 0, len(listed))
		for _, e := range listed {
			names = append(names, e.QualifiedName)
		}
		assert.ElementsMatch(t, []string{"a::topic::x", "a::topic::y"}, names)

		listed, err = s.ListElements(ctx, "c::")
		require.NoError(t, err)
		assert.Empty(t, listed)
	})
}
