package outline

import (
	"fmt"
	"time"
)

// Tree is an arena of nodes addressed by ID. Parent and child links are IDs,
// so detaching and re-attaching a subtree never copies or frees nodes.
//
// A Tree has a single owner; it is not safe for concurrent mutation. Hand a
// Clone to background readers.
type Tree struct {
	nodes   map[ID]*Node
	root    ID
	now     func() time.Time
	version uint64
}

type Option func(*Tree)

// WithClock overrides the time source used for node timestamps.
func WithClock(now func() time.Time) Option {
	return func(t *Tree) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTree returns a tree holding only an empty body root.
func NewTree(opts ...Option) *Tree {
	t := &Tree{
		nodes: map[ID]*Node{},
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	root := &Node{ID: NewID(), Attrs: NewAttrs()}
	t.nodes[root.ID] = root
	t.root = root.ID
	return t
}

func (t *Tree) Root() ID { return t.root }

// Now returns the tree's current time.
func (t *Tree) Now() time.Time { return t.now() }

// Version is bumped by every mutation. Callers compare versions to decide
// whether derived views need refreshing.
func (t *Tree) Version() uint64 { return t.version }

func (t *Tree) touch() { t.version++ }

func (t *Tree) Node(id ID) (*Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

func (t *Tree) Has(id ID) bool {
	_, ok := t.nodes[id]
	return ok
}

func (t *Tree) Parent(id ID) (ID, bool) {
	n, ok := t.nodes[id]
	if !ok || n.parent == "" {
		return "", false
	}
	return n.parent, true
}

func (t *Tree) Children(id ID) []ID {
	n, ok := t.nodes[id]
	if !ok {
		return nil
	}
	return n.Children()
}

// Len is the number of nodes reachable below the body root.
func (t *Tree) Len() int {
	return t.CountDescendants(t.root)
}

// IndexOf returns the position of id among its siblings, or -1.
func (t *Tree) IndexOf(id ID) int {
	n, ok := t.nodes[id]
	if !ok || n.parent == "" {
		return -1
	}
	p := t.nodes[n.parent]
	for i, c := range p.children {
		if c == id {
			return i
		}
	}
	return -1
}

// Attach appends n as the last child of parent without marking anything
// changed. Decoders use it to build a tree from persisted data.
func (t *Tree) Attach(parent ID, n *Node) error {
	p, ok := t.nodes[parent]
	if !ok {
		return fmt.Errorf("attach: %w", NotFoundError{ID: parent})
	}
	if n == nil {
		return fmt.Errorf("attach: nil node")
	}
	if _, exists := t.nodes[n.ID]; exists {
		return fmt.Errorf("attach: duplicate node id %s", n.ID)
	}
	if n.Attrs == nil {
		n.Attrs = NewAttrs()
	}
	n.parent = parent
	t.nodes[n.ID] = n
	p.children = append(p.children, n.ID)
	t.touch()
	return nil
}

// Ancestors returns the parent chain of id, nearest first, ending with the root.
func (t *Tree) Ancestors(id ID) []ID {
	var out []ID
	n, ok := t.nodes[id]
	for ok && n.parent != "" {
		out = append(out, n.parent)
		n, ok = t.nodes[n.parent]
	}
	return out
}

// IsDescendant reports whether id sits somewhere below ancestor.
func (t *Tree) IsDescendant(id, ancestor ID) bool {
	for _, a := range t.Ancestors(id) {
		if a == ancestor {
			return true
		}
	}
	return false
}

// Depth is 0 for top-level items, 1 for their children and so on.
func (t *Tree) Depth(id ID) int {
	return len(t.Ancestors(id)) - 1
}

// SetTitle updates the title and reports whether anything changed.
func (t *Tree) SetTitle(id ID, title string) bool {
	n, ok := t.nodes[id]
	if !ok || n.Title == title {
		return false
	}
	n.Title = title
	t.contentChanged(n)
	return true
}

func (t *Tree) SetNotes(id ID, notes string) bool {
	n, ok := t.nodes[id]
	if !ok || n.Notes == notes {
		return false
	}
	n.Notes = notes
	t.contentChanged(n)
	return true
}

// SetCompleted toggles completion; completed-at follows the flag.
func (t *Tree) SetCompleted(id ID, completed bool) bool {
	n, ok := t.nodes[id]
	if !ok || n.Completed == completed {
		return false
	}
	n.Completed = completed
	if completed {
		n.CompletedAt = t.now()
	} else {
		n.CompletedAt = time.Time{}
	}
	t.contentChanged(n)
	return true
}

func (t *Tree) SetStarred(id ID, starred bool) bool {
	n, ok := t.nodes[id]
	if !ok || n.Starred == starred {
		return false
	}
	n.Starred = starred
	t.contentChanged(n)
	return true
}

// contentChanged stamps updated-at (never moving it backwards) and marks n dirty.
func (t *Tree) contentChanged(n *Node) {
	now := t.now()
	if now.Before(n.UpdatedAt) {
		now = n.UpdatedAt
	}
	n.UpdatedAt = now
	n.changed = true
	t.touch()
}

// MarkChanged flags id as modified without touching its content or
// timestamps.
func (t *Tree) MarkChanged(id ID) {
	if n, ok := t.nodes[id]; ok {
		n.changed = true
		t.touch()
	}
}

// Clone returns a deep copy sharing no mutable state with t.
func (t *Tree) Clone() *Tree {
	c := &Tree{
		nodes:   make(map[ID]*Node, len(t.nodes)),
		root:    t.root,
		now:     t.now,
		version: t.version,
	}
	for id, n := range t.nodes {
		c.nodes[id] = n.clone()
	}
	return c
}
