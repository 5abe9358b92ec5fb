// Package persist provides the public entry point to the persistence layer.
// It exposes the factory while keeping implementation details internal.
package persist

import (
	"context"

	"github.com/mesh-intelligence/orphanage/internal/persist"
	"github.com/mesh-intelligence/orphanage/pkg/types"
)

// Backend, Session and Option are the internal types, re-exported.
type (
	Backend   = persist.Backend
	Session   = persist.Session
	Option    = persist.Option
	Statement = persist.Statement
)

// Option constructors.
var (
	WithLogger     = persist.WithLogger
	WithKeyEncoder = persist.WithKeyEncoder
)

// Open creates a backend, attaches it to the database config describes and
// refreshes the schema.
//
// Example:
//
//	backend, err := persist.Open(ctx, types.Config{
//	    Backend: types.BackendSQLite,
//	    DBName:  types.MemoryDB,
//	})
//	if err != nil { ... }
//	defer backend.Detach()
func Open(ctx context.Context, config types.Config, opts ...Option) (*Backend, error) {
	b := persist.NewBackend(opts...)
	if err := b.Attach(ctx, config); err != nil {
		return nil, err
	}
	if err := b.RefreshSchema(ctx); err != nil {
		b.Detach()
		return nil, err
	}
	return b, nil
}
