package persist

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/orphanage/pkg/types"
)

// Session is a unit of work. It tracks the parents it manages and what is
// stored for them, and writes the difference on Flush. A Session is not safe
// for concurrent use.
type Session struct {
	backend *Backend

	// identity map and managed order
	parents map[types.ID]*types.Parent
	order   []types.ID

	// stored state as of the last load or flush
	storedParents  map[types.ID]bool
	storedChildren map[types.ID]types.ID // child id -> parent id

	removed []*types.Parent
}

func newSession(b *Backend) *Session {
	return &Session{
		backend:        b,
		parents:        make(map[types.ID]*types.Parent),
		storedParents:  make(map[types.ID]bool),
		storedChildren: make(map[types.ID]types.ID),
	}
}

// Persist makes parents managed. Their children, and any children added
// later, are written on the next Flush. Returns ErrInvalidID for a zero ID
// and ErrInvalidData when a different parent with the same ID is already
// managed. Nothing is managed unless every parent is valid.
func (s *Session) Persist(parents ...*types.Parent) error {
	batch := make(map[types.ID]*types.Parent, len(parents))
	for _, p := range parents {
		if err := s.validate(p, batch); err != nil {
			return err
		}
		batch[p.ID] = p
	}

	for _, p := range parents {
		if p.Children == nil {
			p.Children = types.NewLoadedChildren(p, nil)
		}
		s.manage(p)
	}
	return nil
}

func (s *Session) validate(p *types.Parent, batch map[types.ID]*types.Parent) error {
	if p == nil {
		return types.ErrInvalidData
	}
	if p.ID.IsZero() {
		return types.ErrInvalidID
	}
	if p.Children != nil {
		for _, c := range p.Children.Items() {
			if c.ID.IsZero() {
				return types.ErrInvalidID
			}
		}
	}
	for _, known := range []map[types.ID]*types.Parent{s.parents, batch} {
		if cur, ok := known[p.ID]; ok && cur != p {
			return fmt.Errorf("%w: parent %q is already managed", types.ErrInvalidData, p.ID.Primitive())
		}
	}
	return nil
}

// Remove schedules a managed parent and its stored children for deletion.
func (s *Session) Remove(p *types.Parent) {
	if p == nil {
		return
	}
	if cur, ok := s.parents[p.ID]; !ok || cur != p {
		return
	}
	s.removed = append(s.removed, p)
}

// PersistAndFlush persists parents and flushes.
func (s *Session) PersistAndFlush(ctx context.Context, parents ...*types.Parent) error {
	if err := s.Persist(parents...); err != nil {
		return err
	}
	return s.Flush(ctx)
}

// Managed returns the managed parent with the given ID.
func (s *Session) Managed(id types.ID) (*types.Parent, bool) {
	p, ok := s.parents[id]
	return p, ok
}

func (s *Session) manage(p *types.Parent) {
	if _, ok := s.parents[p.ID]; ok {
		return
	}
	s.parents[p.ID] = p
	s.order = append(s.order, p.ID)
}

// changeSet is what a flush writes, in execution order.
type changeSet struct {
	parentInserts []types.ID
	childInserts  []childRow
	childMoves    []childRow
	orphans       []types.ID
	parentDeletes []types.ID
}

type childRow struct {
	id       types.ID
	parentID types.ID
}

func (cs changeSet) empty() bool {
	return len(cs.parentInserts) == 0 &&
		len(cs.childInserts) == 0 &&
		len(cs.childMoves) == 0 &&
		len(cs.orphans) == 0 &&
		len(cs.parentDeletes) == 0
}

func (s *Session) isRemoved(id types.ID) bool {
	for _, p := range s.removed {
		if p.ID.Equal(id) {
			return true
		}
	}
	return false
}

// computeChangeSet diffs managed parents against stored state.
func (s *Session) computeChangeSet() changeSet {
	var cs changeSet
	claimed := make(map[types.ID]bool)

	for _, pid := range s.order {
		p := s.parents[pid]
		if s.isRemoved(pid) {
			continue
		}
		if !s.storedParents[pid] {
			cs.parentInserts = append(cs.parentInserts, pid)
		}
		for _, c := range p.Children.Items() {
			// Stale membership: the child has since been added elsewhere.
			if c.Parent != p || claimed[c.ID] {
				continue
			}
			claimed[c.ID] = true
			prev, stored := s.storedChildren[c.ID]
			switch {
			case !stored:
				cs.childInserts = append(cs.childInserts, childRow{id: c.ID, parentID: pid})
			case !prev.Equal(pid):
				cs.childMoves = append(cs.childMoves, childRow{id: c.ID, parentID: pid})
			}
		}
	}

	seen := make(map[types.ID]bool)
	for _, pid := range s.order {
		p := s.parents[pid]
		for _, o := range p.Children.Orphans() {
			if claimed[o.ID] || seen[o.ID] {
				continue
			}
			if _, stored := s.storedChildren[o.ID]; !stored {
				continue
			}
			seen[o.ID] = true
			cs.orphans = append(cs.orphans, o.ID)
		}
	}

	for _, p := range s.removed {
		if s.storedParents[p.ID] {
			cs.parentDeletes = append(cs.parentDeletes, p.ID)
		}
	}
	return cs
}

// Flush writes pending changes in one transaction: parent inserts, child
// inserts, child moves, the orphan batch delete, then removed parents with
// their remaining children.
func (s *Session) Flush(ctx context.Context) error {
	b := s.backend
	cn, err := b.handle()
	if err != nil {
		return err
	}

	cs := s.computeChangeSet()
	if cs.empty() {
		s.apply(cs)
		return nil
	}

	csID := newChangeSetID()
	tx, err := cn.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, pid := range cs.parentInserts {
		if _, err := b.exec(ctx, cn, tx, csID,
			"INSERT INTO parent_entity (id) VALUES (?)", pid,
		); err != nil {
			return fmt.Errorf("inserting parent %q: %w", pid.Primitive(), err)
		}
	}
	for _, row := range cs.childInserts {
		if _, err := b.exec(ctx, cn, tx, csID,
			"INSERT INTO child_entity (id, parent_id) VALUES (?, ?)", row.id, row.parentID,
		); err != nil {
			return fmt.Errorf("inserting child %q: %w", row.id.Primitive(), err)
		}
	}
	for _, row := range cs.childMoves {
		if _, err := b.exec(ctx, cn, tx, csID,
			"UPDATE child_entity SET parent_id = ? WHERE id = ?", row.parentID, row.id,
		); err != nil {
			return fmt.Errorf("moving child %q: %w", row.id.Primitive(), err)
		}
	}
	if len(cs.orphans) > 0 {
		if err := s.deleteOrphans(ctx, cn, tx, csID, cs.orphans); err != nil {
			return err
		}
	}
	for _, pid := range cs.parentDeletes {
		if _, err := b.exec(ctx, cn, tx, csID,
			"DELETE FROM child_entity WHERE parent_id = ?", pid,
		); err != nil {
			return fmt.Errorf("deleting children of %q: %w", pid.Primitive(), err)
		}
		if _, err := b.exec(ctx, cn, tx, csID,
			"DELETE FROM parent_entity WHERE id = ?", pid,
		); err != nil {
			return fmt.Errorf("deleting parent %q: %w", pid.Primitive(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing change set: %w", err)
	}

	s.apply(cs)
	b.metrics.flushes.Inc()
	b.logger.Debug("flushed",
		"change_set", csID,
		"parent_inserts", len(cs.parentInserts),
		"child_inserts", len(cs.childInserts),
		"child_moves", len(cs.childMoves),
		"orphans", len(cs.orphans),
		"parent_deletes", len(cs.parentDeletes),
	)
	return nil
}

// deleteOrphans removes orphaned children with one DELETE ... IN (...). The
// IN list goes through the backend's key encoder. A short row count is not an
// error: it is logged and counted.
func (s *Session) deleteOrphans(ctx context.Context, cn conn, q querier, csID string, ids []types.ID) error {
	b := s.backend
	params, err := encodeKeys(cn.encodeKey, ids)
	if err != nil {
		return fmt.Errorf("encoding orphan keys: %w", err)
	}

	res, err := b.exec(ctx, cn, q, csID,
		"DELETE FROM child_entity WHERE id IN ("+Placeholders(len(params))+")", params...,
	)
	if err != nil {
		return fmt.Errorf("deleting orphans: %w", err)
	}

	b.metrics.orphansTargeted.Add(float64(len(ids)))
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("counting deleted orphans: %w", err)
	}
	b.metrics.orphansDeleted.Add(float64(affected))
	if missed := int64(len(ids)) - affected; missed > 0 {
		b.metrics.orphansUnmatched.Add(float64(missed))
		b.logger.Warn("orphan delete matched fewer rows than targeted",
			"change_set", csID,
			"targeted", len(ids),
			"deleted", affected,
			"params", params,
		)
	}
	return nil
}

// apply records a committed change set as stored state.
func (s *Session) apply(cs changeSet) {
	for _, pid := range cs.parentInserts {
		s.storedParents[pid] = true
	}
	for _, row := range cs.childInserts {
		s.storedChildren[row.id] = row.parentID
	}
	for _, row := range cs.childMoves {
		s.storedChildren[row.id] = row.parentID
	}
	for _, id := range cs.orphans {
		delete(s.storedChildren, id)
	}

	for _, p := range s.removed {
		delete(s.storedParents, p.ID)
		for cid, pid := range s.storedChildren {
			if pid.Equal(p.ID) {
				delete(s.storedChildren, cid)
			}
		}
		delete(s.parents, p.ID)
		s.dropOrder(p.ID)
	}
	s.removed = nil

	for _, p := range s.parents {
		p.Children.ClearOrphans()
	}
}

func (s *Session) dropOrder(id types.ID) {
	for i, pid := range s.order {
		if pid.Equal(id) {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

// newChangeSetID tags the statements of one flush.
func newChangeSetID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
