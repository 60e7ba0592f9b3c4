package outline

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTitle is the title given to items created without one.
const DefaultTitle = "New Outline"

// ID identifies a node for its whole lifetime. It is never reassigned.
type ID string

func NewID() ID {
	return ID(uuid.NewString())
}

// Node is one entry of an outline.
//
// Content fields are exported for reading; mutate them through the Tree setters
// so that timestamps and the changed flag are maintained. Structure (parent and
// children) is owned by the Tree and only reachable through its methods.
type Node struct {
	ID ID

	Title     string
	Notes     string
	Completed bool
	Starred   bool

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt time.Time

	// Expanded is persisted; Visible is session-only.
	Expanded bool
	Visible  bool

	// Attrs holds unrecognised attributes from the source file.
	Attrs *Attrs

	parent   ID
	children []ID
	changed  bool
}

// NewNode returns a fresh, unattached item stamped with now.
func NewNode(title string, now time.Time) *Node {
	if title == "" {
		title = DefaultTitle
	}
	return &Node{
		ID:        NewID(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		Attrs:     NewAttrs(),
		changed:   true,
	}
}

// CopyFrom duplicates the content of src into a new unattached node.
// Children are not copied; the copy gets its own id and fresh timestamps.
func CopyFrom(src *Node, now time.Time) *Node {
	n := &Node{
		ID:        NewID(),
		Title:     src.Title,
		Notes:     src.Notes,
		Completed: src.Completed,
		Starred:   src.Starred,
		CreatedAt: now,
		UpdatedAt: now,
		Attrs:     NewAttrs(),
		changed:   true,
	}
	if src.Completed {
		n.CompletedAt = src.CompletedAt
	}
	return n
}

// Parent returns the id of the owning node, or "" for the body root and for
// detached nodes.
func (n *Node) Parent() ID { return n.parent }

func (n *Node) Children() []ID {
	out := make([]ID, len(n.children))
	copy(out, n.children)
	return out
}

func (n *Node) HasChildren() bool { return len(n.children) > 0 }

// Changed reports the node's own dirty flag (not its descendants').
func (n *Node) Changed() bool { return n.changed }

// MarkLoaded clears the dirty flag on a node built from persisted data.
func (n *Node) MarkLoaded() { n.changed = false }

func (n *Node) clone() *Node {
	c := *n
	c.children = make([]ID, len(n.children))
	copy(c.children, n.children)
	c.Attrs = n.Attrs.Clone()
	return &c
}
