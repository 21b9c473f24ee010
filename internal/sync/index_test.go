package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/toolhive-catalog-sync/internal/catalog"
	"github.com/stacklok/toolhive-catalog-sync/internal/store/memory"
	"github.com/stacklok/toolhive-catalog-sync/internal/store/mocks"
)

func TestNewIndex(t *testing.T) {
	t.Parallel()

	prefix := catalog.QualifiedNamePrefix(testNamespace, testResourceType)

	t.Run("indexes active and archived elements", func(t *testing.T) {
		t.Parallel()
		idx, err := NewIndex(prefix, []*catalog.CatalogElement{
			element("b", "v1", catalog.StatusActive),
			element("a", "v1", catalog.StatusArchived),
			nil,
		})
		require.NoError(t, err)

		assert.Equal(t, 2, idx.Len())
		assert.Equal(t, []string{qn("a"), qn("b")}, idx.Names())
		assert.Equal(t, prefix, idx.Prefix())

		got, ok := idx.Get(qn("a"))
		require.True(t, ok)
		assert.Equal(t, catalog.StatusArchived, got.Status)
		_, ok = idx.Get(qn("missing"))
		assert.False(t, ok)

		assert.Equal(t, map[catalog.ElementStatus]int{
			catalog.StatusActive:   1,
			catalog.StatusArchived: 1,
		}, idx.CountByStatus())
	})

	t.Run("rejects duplicate qualified names", func(t *testing.T) {
		t.Parallel()
		_, err := NewIndex(prefix, []*catalog.CatalogElement{
			element("a", "v1", catalog.StatusActive),
			element("a", "v2", catalog.StatusArchived),
		})
		assert.ErrorContains(t, err, "duplicate element")
	})

	t.Run("rejects elements outside the prefix", func(t *testing.T) {
		t.Parallel()
		_, err := NewIndex(prefix, []*catalog.CatalogElement{
			{QualifiedName: "other::topic::a"},
		})
		assert.ErrorContains(t, err, "outside prefix")
	})

	t.Run("nil index is empty", func(t *testing.T) {
		t.Parallel()
		var idx *Index
		assert.Equal(t, 0, idx.Len())
		assert.Empty(t, idx.Names())
		_, ok := idx.Get("x")
		assert.False(t, ok)
	})

	t.Run("names are a copy", func(t *testing.T) {
		t.Parallel()
		idx, err := NewIndex(prefix, []*catalog.CatalogElement{element("a", "v1", catalog.StatusActive)})
		require.NoError(t, err)
		names := idx.Names()
		names[0] = "mutated"
		assert.Equal(t, []string{qn("a")}, idx.Names())
	})
}

func TestLoadIndex(t *testing.T) {
	t.Parallel()

	t.Run("loads only the connector prefix", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		st := memory.New()
		_, err := st.CreateElement(ctx, createRequest(qn("a")))
		require.NoError(t, err)
		_, err = st.CreateElement(ctx, createRequest("other-ns::topic::a"))
		require.NoError(t, err)

		idx, err := LoadIndex(ctx, st, catalog.QualifiedNamePrefix(testNamespace, testResourceType))
		require.NoError(t, err)
		assert.Equal(t, []string{qn("a")}, idx.Names())
	})

	t.Run("wraps store errors", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		st := mocks.NewMockStore(ctrl)
		st.EXPECT().ListElements(gomock.Any(), "p::t::").Return(nil, errors.New("connection refused"))

		_, err := LoadIndex(context.Background(), st, "p::t::")
		assert.ErrorContains(t, err, "connection refused")
	})
}
