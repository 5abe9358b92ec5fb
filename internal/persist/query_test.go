package persist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/orphanage/pkg/types"
)

func TestParentQuery_SingleWithChildren(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t, memoryConfig())
	seed(t, b, "1", "123")

	p, err := b.Fork().QueryParents().WithChildren().Where(types.NewID("1")).Single(ctx)
	require.NoError(t, err)

	assert.True(t, p.ID.Equal(types.NewID("1")))
	require.True(t, p.Children.Initialized())
	items := p.Children.Items()
	require.Len(t, items, 1)
	assert.True(t, items[0].ID.Equal(types.NewID("123")))
	assert.Same(t, p, items[0].Parent)

	sel := lastStatement(t, b, "select")
	assert.Contains(t, sel.SQL, "LEFT JOIN child_entity c ON c.parent_id = p.id")
	assert.Contains(t, sel.SQL, "WHERE p.id = ?")
}

func TestParentQuery_ParentWithoutChildren(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t, memoryConfig())
	seed(t, b, "1")

	p, err := b.Fork().QueryParents().WithChildren().Where(types.NewID("1")).Single(ctx)
	require.NoError(t, err)
	assert.True(t, p.Children.Initialized())
	assert.Equal(t, 0, p.Children.Len())
}

func TestParentQuery_NotFound(t *testing.T) {
	b := newTestBackend(t, memoryConfig())

	_, err := b.Fork().QueryParents().WithChildren().Where(types.NewID("1")).Single(context.Background())
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestParentQuery_WithoutJoinLeavesCollectionUnloaded(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t, memoryConfig())
	seed(t, b, "1", "123")

	p, err := b.Fork().QueryParents().Where(types.NewID("1")).Single(ctx)
	require.NoError(t, err)
	assert.False(t, p.Children.Initialized())
	assert.Equal(t, 0, p.Children.Len())
}

func TestParentQuery_IdentityMap(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t, memoryConfig())
	seed(t, b, "1", "123")
	s := b.Fork()

	unloaded, err := s.QueryParents().Where(types.NewID("1")).Single(ctx)
	require.NoError(t, err)
	loaded, err := s.QueryParents().WithChildren().Where(types.NewID("1")).Single(ctx)
	require.NoError(t, err)

	assert.Same(t, unloaded, loaded)
	assert.Equal(t, 1, loaded.Children.Len(), "unloaded collection is populated by a later join")

	loaded.Children.RemoveAll()
	again, err := s.QueryParents().WithChildren().Where(types.NewID("1")).Single(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Children.Len(), "in-memory changes survive a re-query")
}

func TestParentQuery_AllOrdered(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t, memoryConfig())
	seed(t, b, "b", "b2", "b1")
	seed(t, b, "a")

	parents, err := b.Fork().QueryParents().WithChildren().All(ctx)
	require.NoError(t, err)
	require.Len(t, parents, 2)
	assert.Equal(t, "a", parents[0].ID.Primitive())
	assert.Equal(t, "b", parents[1].ID.Primitive())

	var ids []string
	for _, c := range parents[1].Children.Items() {
		ids = append(ids, c.ID.Primitive())
	}
	assert.Equal(t, []string{"b1", "b2"}, ids)
}
