package persist

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/orphanage/pkg/types"
)

// ParentQuery selects parents, optionally joining their children.
type ParentQuery struct {
	session      *Session
	withChildren bool
	filter       *types.ID
}

// QueryParents starts a query over parent_entity.
func (s *Session) QueryParents() *ParentQuery {
	return &ParentQuery{session: s}
}

// WithChildren left-joins child_entity and hydrates each parent's collection.
func (q *ParentQuery) WithChildren() *ParentQuery {
	q.withChildren = true
	return q
}

// Where restricts the query to the parent with the given ID.
func (q *ParentQuery) Where(id types.ID) *ParentQuery {
	q.filter = &id
	return q
}

// Single returns the first matching parent or ErrNotFound.
func (q *ParentQuery) Single(ctx context.Context) (*types.Parent, error) {
	parents, err := q.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(parents) == 0 {
		if q.filter != nil {
			return nil, fmt.Errorf("parent %q: %w", q.filter.Primitive(), types.ErrNotFound)
		}
		return nil, types.ErrNotFound
	}
	return parents[0], nil
}

// All returns every matching parent ordered by id. Parents already managed by
// the session are returned as the same pointer; their in-memory collections
// are only replaced when they were never loaded.
func (q *ParentQuery) All(ctx context.Context) ([]*types.Parent, error) {
	s := q.session
	b := s.backend
	cn, err := b.handle()
	if err != nil {
		return nil, err
	}

	query := "SELECT p.id FROM parent_entity p"
	if q.withChildren {
		query = "SELECT p.id, c.id FROM parent_entity p LEFT JOIN child_entity c ON c.parent_id = p.id"
	}
	var args []any
	if q.filter != nil {
		query += " WHERE p.id = ?"
		args = append(args, *q.filter)
	}
	query += " ORDER BY p.id"
	if q.withChildren {
		query += ", c.id"
	}

	rows, err := b.query(ctx, cn, cn.db, "", query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying parents: %w", err)
	}

	var ids []types.ID
	children := make(map[types.ID][]types.ID)
	for rows.Next() {
		var pid types.ID
		var cid sql.Null[types.ID]
		dest := []any{&pid}
		if q.withChildren {
			dest = append(dest, &cid)
		}
		if err := rows.Scan(dest...); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning parent row: %w", err)
		}
		if _, ok := children[pid]; !ok {
			ids = append(ids, pid)
			children[pid] = nil
		}
		if cid.Valid {
			children[pid] = append(children[pid], cid.V)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating parents: %w", err)
	}

	results := make([]*types.Parent, 0, len(ids))
	for _, pid := range ids {
		results = append(results, s.hydrate(pid, children[pid], q.withChildren))
	}
	return results, nil
}

// hydrate merges a loaded row group into the identity map.
func (s *Session) hydrate(pid types.ID, childIDs []types.ID, loaded bool) *types.Parent {
	s.storedParents[pid] = true
	if loaded {
		for _, cid := range childIDs {
			s.storedChildren[cid] = pid
		}
	}

	p, ok := s.parents[pid]
	if !ok {
		p = &types.Parent{ID: pid}
		p.Children = types.NewUnloadedChildren(p)
		s.parents[pid] = p
		s.order = append(s.order, pid)
	}
	if loaded && !p.Children.Initialized() {
		items := make([]*types.Child, 0, len(childIDs))
		for _, cid := range childIDs {
			items = append(items, types.NewChild(cid))
		}
		p.Children = types.NewLoadedChildren(p, items)
	}
	return p
}
