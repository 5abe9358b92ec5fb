// Package reproduce seeds and runs the orphan-removal scenario: a parent with
// one child is stored, reloaded with its children joined, emptied with
// RemoveAll, and flushed. Afterwards the child table must be empty.
package reproduce

import (
	"context"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/orphanage/internal/persist"
	"github.com/mesh-intelligence/orphanage/pkg/types"
)

// Default keys of the seeded records.
const (
	DefaultParentID = "1"
	DefaultChildID  = "123"
)

// Scenario names the records to seed and reload.
type Scenario struct {
	ParentID types.ID
	ChildIDs []types.ID
}

// Default returns Parent "1" with Child "123".
func Default() Scenario {
	return Scenario{
		ParentID: types.NewID(DefaultParentID),
		ChildIDs: []types.ID{types.NewID(DefaultChildID)},
	}
}

// Result is what Run observed after the flush.
type Result struct {
	// Remaining holds the child_entity rows left after the flush.
	Remaining []map[string]any

	// DeleteParams are the parameters bound to the orphan batch delete, when
	// the backend runs in debug mode.
	DeleteParams []any
}

// Passed reports whether orphan removal deleted every child.
func (r Result) Passed() bool {
	return len(r.Remaining) == 0
}

// Seed stores the parent and its children through a fresh session. Records
// that are already stored are kept, so seeding a database that an earlier
// run left behind only adds what is missing.
func (sc Scenario) Seed(ctx context.Context, b *persist.Backend) error {
	s := b.Fork()

	p, err := s.QueryParents().WithChildren().Where(sc.ParentID).Single(ctx)
	switch {
	case errors.Is(err, types.ErrNotFound):
		p = types.NewParent(sc.ParentID)
	case err != nil:
		return fmt.Errorf("seeding parent %q: %w", sc.ParentID.Primitive(), err)
	}

	for _, id := range sc.ChildIDs {
		p.Children.Add(types.NewChild(id))
	}
	if err := s.PersistAndFlush(ctx, p); err != nil {
		return fmt.Errorf("seeding parent %q: %w", sc.ParentID.Primitive(), err)
	}
	return nil
}

// Run reloads the parent with its children in a new session, removes all
// children, flushes, and reads back the child table. A missing parent returns
// an error wrapping types.ErrNotFound.
func (sc Scenario) Run(ctx context.Context, b *persist.Backend) (Result, error) {
	s := b.Fork()

	p, err := s.QueryParents().WithChildren().Where(sc.ParentID).Single(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("loading parent: %w", err)
	}

	p.Children.RemoveAll()
	if err := s.Flush(ctx); err != nil {
		return Result{}, fmt.Errorf("flushing: %w", err)
	}

	rows, err := b.SelectAll(ctx, types.ChildTable)
	if err != nil {
		return Result{}, fmt.Errorf("reading %s: %w", types.ChildTable, err)
	}

	res := Result{Remaining: rows}
	for _, stmt := range b.Statements() {
		if stmt.Kind() == "delete" {
			res.DeleteParams = stmt.Params
		}
	}
	return res, nil
}
