package types

// Table names for the entity model.
const (
	ParentTable = "parent_entity"
	ChildTable  = "child_entity"
)

// StandardTableNames lists all table names for enumeration.
var StandardTableNames = []string{
	ParentTable,
	ChildTable,
}

// Parent owns a collection of children. Children detached from the
// collection are orphans: the next flush deletes them unless another managed
// parent has adopted them in the meantime.
type Parent struct {
	ID       ID
	Children *Children
}

// Child belongs to exactly one Parent.
type Child struct {
	ID     ID
	Parent *Parent
}

// NewParent returns a parent with an empty, initialized collection.
func NewParent(id ID) *Parent {
	p := &Parent{ID: id}
	p.Children = newChildren(p)
	p.Children.initialized = true
	return p
}

// NewChild returns a detached child.
func NewChild(id ID) *Child {
	return &Child{ID: id}
}

// ParentID returns the ID of the owning parent, or the zero ID when detached.
func (c *Child) ParentID() ID {
	if c.Parent == nil {
		return ID{}
	}
	return c.Parent.ID
}
