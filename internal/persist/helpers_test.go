package persist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/orphanage/pkg/types"
)

func memoryConfig() types.Config {
	return types.Config{
		Backend: types.BackendSQLite,
		DBName:  types.MemoryDB,
		Debug:   true,
	}
}

// newTestBackend attaches an in-memory backend with a fresh schema and
// detaches it when the test ends.
func newTestBackend(t *testing.T, cfg types.Config, opts ...Option) *Backend {
	t.Helper()
	ctx := context.Background()

	b := NewBackend(opts...)
	require.NoError(t, b.Attach(ctx, cfg))
	t.Cleanup(func() { b.Detach() })
	require.NoError(t, b.RefreshSchema(ctx))
	return b
}

// seed stores parent id with the given children through its own session.
func seed(t *testing.T, b *Backend, id string, childIDs ...string) {
	t.Helper()
	p := types.NewParent(types.NewID(id))
	for _, cid := range childIDs {
		p.Children.Add(types.NewChild(types.NewID(cid)))
	}
	require.NoError(t, b.Fork().PersistAndFlush(context.Background(), p))
}

func childRows(t *testing.T, b *Backend) []map[string]any {
	t.Helper()
	rows, err := b.SelectAll(context.Background(), types.ChildTable)
	require.NoError(t, err)
	return rows
}

func lastStatement(t *testing.T, b *Backend, kind string) Statement {
	t.Helper()
	stmts := b.Statements()
	for i := len(stmts) - 1; i >= 0; i-- {
		if stmts[i].Kind() == kind {
			return stmts[i]
		}
	}
	t.Fatalf("no %s statement recorded", kind)
	return Statement{}
}
