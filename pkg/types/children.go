package types

// Children is the one-to-many collection of a Parent. It keeps members in
// insertion order and records removed members as orphans until the owning
// session flushes.
type Children struct {
	owner       *Parent
	items       []*Child
	orphans     []*Child
	initialized bool
}

func newChildren(owner *Parent) *Children {
	return &Children{owner: owner}
}

// NewUnloadedChildren returns an empty collection for owner that does not
// reflect stored state. Removing from it records nothing.
func NewUnloadedChildren(owner *Parent) *Children {
	return newChildren(owner)
}

// NewLoadedChildren returns a collection for owner populated with items, as
// produced by a query that joined the children. Back references are set and
// no orphans are recorded.
func NewLoadedChildren(owner *Parent, items []*Child) *Children {
	c := newChildren(owner)
	for _, child := range items {
		child.Parent = owner
		c.items = append(c.items, child)
	}
	c.initialized = true
	return c
}

// Add attaches children to the owner. A child already present (by ID) is
// skipped. Adding back a child that is pending removal cancels the removal.
func (c *Children) Add(children ...*Child) {
	for _, child := range children {
		if child == nil || c.Contains(child.ID) {
			continue
		}
		c.dropOrphan(child.ID)
		child.Parent = c.owner
		c.items = append(c.items, child)
	}
}

// Remove detaches children from the owner and records them as orphans.
// Children that are not members are ignored.
func (c *Children) Remove(children ...*Child) {
	for _, child := range children {
		if child == nil {
			continue
		}
		idx := c.indexOf(child.ID)
		if idx < 0 {
			continue
		}
		member := c.items[idx]
		c.items = append(c.items[:idx], c.items[idx+1:]...)
		if member.Parent == c.owner {
			member.Parent = nil
		}
		c.orphans = append(c.orphans, member)
	}
}

// RemoveAll detaches every member.
func (c *Children) RemoveAll() {
	items := make([]*Child, len(c.items))
	copy(items, c.items)
	c.Remove(items...)
}

// Items returns a copy of the current members.
func (c *Children) Items() []*Child {
	out := make([]*Child, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of members.
func (c *Children) Len() int {
	return len(c.items)
}

// Contains reports whether a member with the given ID is present.
func (c *Children) Contains(id ID) bool {
	return c.indexOf(id) >= 0
}

// Orphans returns the members removed since the last flush.
func (c *Children) Orphans() []*Child {
	out := make([]*Child, len(c.orphans))
	copy(out, c.orphans)
	return out
}

// Initialized reports whether the collection reflects stored state, either
// because it was created in memory or because a query joined it.
func (c *Children) Initialized() bool {
	return c.initialized
}

// ClearOrphans forgets recorded orphans. The session calls it after a
// successful flush.
func (c *Children) ClearOrphans() {
	c.orphans = nil
}

func (c *Children) indexOf(id ID) int {
	for i, child := range c.items {
		if child.ID.Equal(id) {
			return i
		}
	}
	return -1
}

func (c *Children) dropOrphan(id ID) {
	for i, o := range c.orphans {
		if o.ID.Equal(id) {
			c.orphans = append(c.orphans[:i], c.orphans[i+1:]...)
			return
		}
	}
}
