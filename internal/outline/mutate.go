package outline

import (
	"fmt"
	"slices"
	"strings"
)

// Position places a node relative to an anchor node.
type Position int

const (
	Above Position = iota
	Below
	Child
)

func (p Position) String() string {
	switch p {
	case Above:
		return "above"
	case Below:
		return "below"
	case Child:
		return "child"
	default:
		return fmt.Sprintf("Position(%d)", int(p))
	}
}

func ParsePosition(s string) (Position, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "above", "before":
		return Above, nil
	case "below", "after", "":
		return Below, nil
	case "child", "into", "in":
		return Child, nil
	default:
		return 0, fmt.Errorf("invalid position %q (expected above|below|child)", s)
	}
}

// SetExpansion sets expanded on id and, when recursive, on every descendant.
// Expansion is presentation state and does not mark nodes changed.
func (t *Tree) SetExpansion(id ID, expanded, recursive bool) {
	n, ok := t.nodes[id]
	if !ok {
		return
	}
	n.Expanded = expanded
	if recursive {
		for _, c := range n.children {
			t.SetExpansion(c, expanded, true)
		}
	}
	t.touch()
}

// AddChild inserts the unattached node n relative to anchor. Above and Below
// need anchor to have a parent; Child appends to anchor's children and expands
// anchor. It reports whether n was inserted.
func (t *Tree) AddChild(anchor ID, n *Node, pos Position) bool {
	a, ok := t.nodes[anchor]
	if !ok || n == nil || n.parent != "" || n.ID == t.root {
		return false
	}
	switch pos {
	case Above, Below:
		if a.parent == "" {
			return false
		}
		idx := t.IndexOf(anchor)
		if pos == Below {
			idx++
		}
		t.insert(a.parent, idx, n)
	case Child:
		t.insert(anchor, len(a.children), n)
		a.Expanded = true
	default:
		return false
	}
	return true
}

// insert places n at idx among parent's children, registering it (and any
// subtree it already carries) in the arena.
func (t *Tree) insert(parent ID, idx int, n *Node) {
	p := t.nodes[parent]
	if _, ok := t.nodes[n.ID]; !ok {
		t.nodes[n.ID] = n
	}
	if n.Attrs == nil {
		n.Attrs = NewAttrs()
	}
	idx = max(0, min(idx, len(p.children)))
	p.children = slices.Insert(p.children, idx, n.ID)
	n.parent = parent
	n.changed = true
	t.touch()
}

// Delete removes id and its subtree. It returns the node that should be
// selected next: the parent when id was an only child, otherwise the
// following sibling, otherwise the preceding one. ok is false when id is the
// body root, unknown or detached.
func (t *Tree) Delete(id ID) (next ID, ok bool) {
	n, found := t.nodes[id]
	if !found || n.parent == "" {
		return "", false
	}
	p := t.nodes[n.parent]
	idx := t.IndexOf(id)
	if idx < 0 {
		return "", false
	}
	switch {
	case len(p.children) == 1:
		next = p.ID
	case idx+1 < len(p.children):
		next = p.children[idx+1]
	default:
		next = p.children[idx-1]
	}
	p.children = slices.Delete(p.children, idx, idx+1)
	p.changed = true
	n.parent = ""
	t.drop(id)
	t.touch()
	return next, true
}

// drop removes id and everything below it from the arena.
func (t *Tree) drop(id ID) {
	n, ok := t.nodes[id]
	if !ok {
		return
	}
	for _, c := range n.children {
		t.drop(c)
	}
	delete(t.nodes, id)
}

// HasUnsavedChanges reports whether id or any descendant is dirty.
func (t *Tree) HasUnsavedChanges(id ID) bool {
	n, ok := t.nodes[id]
	if !ok {
		return false
	}
	if n.changed {
		return true
	}
	for _, c := range n.children {
		if t.HasUnsavedChanges(c) {
			return true
		}
	}
	return false
}

// ClearChanged resets the dirty flag on id and its whole subtree.
func (t *Tree) ClearChanged(id ID) {
	n, ok := t.nodes[id]
	if !ok {
		return
	}
	n.changed = false
	for _, c := range n.children {
		t.ClearChanged(c)
	}
}

// CountDescendants is the number of nodes strictly below id.
func (t *Tree) CountDescendants(id ID) int {
	n, ok := t.nodes[id]
	if !ok {
		return 0
	}
	total := len(n.children)
	for _, c := range n.children {
		total += t.CountDescendants(c)
	}
	return total
}

// Duplicate inserts a content copy of id (without children) directly below it.
func (t *Tree) Duplicate(id ID) (ID, error) {
	src, ok := t.nodes[id]
	if !ok {
		return "", NotFoundError{ID: id}
	}
	if src.parent == "" {
		return "", fmt.Errorf("duplicate %s: %w", id, ErrNoParent)
	}
	cp := CopyFrom(src, t.now())
	if !t.AddChild(id, cp, Below) {
		return "", fmt.Errorf("duplicate %s: insert failed", id)
	}
	return cp.ID, nil
}

// Reveal expands every collapsed ancestor of id and marks the chain visible.
// It returns how many ancestors were expanded.
func (t *Tree) Reveal(id ID) int {
	n, ok := t.nodes[id]
	if !ok {
		return 0
	}
	n.Visible = true
	count := 0
	for _, a := range t.Ancestors(id) {
		if a == t.root {
			break
		}
		an := t.nodes[a]
		an.Visible = true
		if !an.Expanded {
			an.Expanded = true
			count++
		}
	}
	if count > 0 {
		t.touch()
	}
	return count
}

// Flatten returns id followed by its whole subtree in pre-order. For the body
// root only the descendants are returned.
func (t *Tree) Flatten(id ID) []ID {
	if !t.Has(id) {
		return nil
	}
	var out []ID
	if id != t.root {
		out = append(out, id)
	}
	for n := range t.Walk(id) {
		out = append(out, n.ID)
	}
	return out
}
