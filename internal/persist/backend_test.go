package persist

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/orphanage/pkg/types"
)

func TestBackend_Attach(t *testing.T) {
	ctx := context.Background()
	b := NewBackend()

	require.NoError(t, b.Attach(ctx, memoryConfig()))
	defer b.Detach()

	err := b.Attach(ctx, memoryConfig())
	assert.ErrorIs(t, err, types.ErrAlreadyAttached)
}

func TestBackend_AttachInvalidConfig(t *testing.T) {
	b := NewBackend()
	err := b.Attach(context.Background(), types.Config{Backend: "oracle", DBName: "x"})
	assert.ErrorIs(t, err, types.ErrBackendUnknown)
}

func TestBackend_Detach(t *testing.T) {
	ctx := context.Background()
	b := NewBackend()
	require.NoError(t, b.Attach(ctx, memoryConfig()))

	require.NoError(t, b.Detach())
	assert.NoError(t, b.Detach(), "second Detach should not error")

	_, err := b.SelectAll(ctx, types.ChildTable)
	assert.ErrorIs(t, err, types.ErrDetached)
	assert.ErrorIs(t, b.RefreshSchema(ctx), types.ErrDetached)
	assert.ErrorIs(t, b.Fork().Flush(ctx), types.ErrDetached)
}

func TestBackend_SelectAll(t *testing.T) {
	b := newTestBackend(t, memoryConfig())
	seed(t, b, "1", "124", "123")

	rows := childRows(t, b)
	require.Len(t, rows, 2)
	assert.Equal(t, map[string]any{"id": "123", "parent_id": "1"}, rows[0])
	assert.Equal(t, map[string]any{"id": "124", "parent_id": "1"}, rows[1])

	parents, err := b.SelectAll(context.Background(), types.ParentTable)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"id": "1"}}, parents)
}

func TestBackend_SelectAllEmpty(t *testing.T) {
	b := newTestBackend(t, memoryConfig())

	rows := childRows(t, b)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestBackend_SelectAllUnknownTable(t *testing.T) {
	b := newTestBackend(t, memoryConfig())

	_, err := b.SelectAll(context.Background(), "sqlite_master; DROP TABLE child_entity")
	assert.ErrorIs(t, err, types.ErrTableNotFound)
}

func TestBackend_RefreshSchemaClearsRows(t *testing.T) {
	b := newTestBackend(t, memoryConfig())
	seed(t, b, "1", "123")

	require.NoError(t, b.RefreshSchema(context.Background()))
	assert.Empty(t, childRows(t, b))
}

func TestBackend_EnsureSchemaKeepsRows(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "orphanage.db")
	cfg := types.Config{Backend: types.BackendSQLite, DBName: path}

	b := NewBackend()
	require.NoError(t, b.Attach(ctx, cfg))
	require.NoError(t, b.EnsureSchema(ctx))
	seed(t, b, "1", "123")
	require.NoError(t, b.Detach())

	reopened := NewBackend()
	require.NoError(t, reopened.Attach(ctx, cfg))
	defer reopened.Detach()
	require.NoError(t, reopened.EnsureSchema(ctx))

	assert.Len(t, childRows(t, reopened), 1)
}

func TestBackend_ForeignKeysEnforced(t *testing.T) {
	b := newTestBackend(t, memoryConfig())
	cn, err := b.handle()
	require.NoError(t, err)

	_, err = cn.db.Exec("INSERT INTO child_entity (id, parent_id) VALUES ('9', 'missing')")
	assert.Error(t, err)
}

func TestBackend_StatementsOnlyInDebug(t *testing.T) {
	cfg := memoryConfig()
	cfg.Debug = false
	b := newTestBackend(t, cfg)
	seed(t, b, "1", "123")

	assert.Empty(t, b.Statements())
}

func TestBackend_ReattachPicksKeyEncodingFromConfig(t *testing.T) {
	ctx := context.Background()
	b := NewBackend()

	require.NoError(t, b.Attach(ctx, memoryConfig()))
	require.NoError(t, b.Detach())

	cfg := memoryConfig()
	cfg.KeyEncoding = types.KeyEncodingString
	require.NoError(t, b.Attach(ctx, cfg))
	t.Cleanup(func() { b.Detach() })
	require.NoError(t, b.RefreshSchema(ctx))
	seed(t, b, "1", "123")

	s := b.Fork()
	p, err := s.QueryParents().WithChildren().Where(types.NewID("1")).Single(ctx)
	require.NoError(t, err)
	p.Children.RemoveAll()
	require.NoError(t, s.Flush(ctx))

	assert.Equal(t, types.KeyEncodingString, b.Config().GetKeyEncoding())
	assert.Equal(t, []any{"{123}"}, lastStatement(t, b, "delete").Params)
	assert.Len(t, childRows(t, b), 1)
}

func TestBackend_KeyEncoderOptionSurvivesReattach(t *testing.T) {
	ctx := context.Background()
	b := NewBackend(WithKeyEncoder(StringKeys))

	require.NoError(t, b.Attach(ctx, memoryConfig()))
	require.NoError(t, b.Detach())
	require.NoError(t, b.Attach(ctx, memoryConfig()))
	t.Cleanup(func() { b.Detach() })
	require.NoError(t, b.RefreshSchema(ctx))
	seed(t, b, "1", "123")

	s := b.Fork()
	p, err := s.QueryParents().WithChildren().Single(ctx)
	require.NoError(t, err)
	p.Children.RemoveAll()
	require.NoError(t, s.Flush(ctx))

	assert.Equal(t, []any{"{123}"}, lastStatement(t, b, "delete").Params)
}

func TestBackend_ReattachPicksDebugFromConfig(t *testing.T) {
	ctx := context.Background()
	b := NewBackend()

	quiet := memoryConfig()
	quiet.Debug = false
	require.NoError(t, b.Attach(ctx, quiet))
	require.NoError(t, b.RefreshSchema(ctx))
	assert.Empty(t, b.Statements())
	require.NoError(t, b.Detach())

	require.NoError(t, b.Attach(ctx, memoryConfig()))
	t.Cleanup(func() { b.Detach() })
	require.NoError(t, b.RefreshSchema(ctx))
	assert.NotEmpty(t, b.Statements())
}

func TestBackend_ReattachWhileQuerying(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t, memoryConfig())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				// Errors are expected while detached; only data races matter.
				_, _ = b.SelectAll(ctx, types.ChildTable)
			}
		}()
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, b.Detach())
		require.NoError(t, b.Attach(ctx, memoryConfig()))
	}
	wg.Wait()
}
