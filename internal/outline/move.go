package outline

import (
	"fmt"
	"slices"
)

// Move relocates src (with its subtree) relative to target. Self-moves, moves
// into src's own subtree and placements that need a missing parent are
// refused with a MoveError before anything is touched.
//
// src is detached first and target's index is looked up afterwards, so moving
// within one sibling list lands where the caller expects.
func (t *Tree) Move(src, target ID, pos Position) error {
	if err := t.checkMove(src, target, pos); err != nil {
		return err
	}
	s := t.nodes[src]
	if !t.Detach(src) {
		return MoveError{Reason: ErrNoParent, Source: src, Target: target}
	}
	switch pos {
	case Above, Below:
		parent := t.nodes[target].parent
		idx := t.IndexOf(target)
		if pos == Below {
			idx++
		}
		t.insert(parent, idx, s)
	case Child:
		t.insert(target, 0, s)
		t.nodes[target].Expanded = true
	}
	return nil
}

// CanMove reports whether Move would accept the request.
func (t *Tree) CanMove(src, target ID, pos Position) bool {
	return t.checkMove(src, target, pos) == nil
}

func (t *Tree) checkMove(src, target ID, pos Position) error {
	fail := func(reason error) error {
		return MoveError{Reason: reason, Source: src, Target: target}
	}
	if src == target {
		return fail(ErrSelfMove)
	}
	s, ok := t.nodes[src]
	if !ok {
		return fail(NotFoundError{ID: src})
	}
	tn, ok := t.nodes[target]
	if !ok {
		return fail(NotFoundError{ID: target})
	}
	if t.IsDescendant(target, src) {
		return fail(ErrAncestorMove)
	}
	if s.parent == "" {
		return fail(ErrNoParent)
	}
	switch pos {
	case Above, Below:
		if tn.parent == "" {
			return fail(ErrNoParent)
		}
	case Child:
	default:
		return fail(fmt.Errorf("invalid position %d", int(pos)))
	}
	return nil
}

// Detach unlinks id from its parent. The node and its subtree stay in the
// arena so they can be re-inserted. It reports false if id had no parent.
func (t *Tree) Detach(id ID) bool {
	n, ok := t.nodes[id]
	if !ok || n.parent == "" {
		return false
	}
	p := t.nodes[n.parent]
	idx := slices.Index(p.children, id)
	if idx < 0 {
		return false
	}
	p.children = slices.Delete(p.children, idx, idx+1)
	n.parent = ""
	t.touch()
	return true
}

// CanIndent reports whether id has a previous sibling to become its parent.
func (t *Tree) CanIndent(id ID) bool {
	return t.IndexOf(id) > 0
}

// Indent makes id the first child of its previous sibling.
func (t *Tree) Indent(id ID) error {
	if !t.CanIndent(id) {
		return fmt.Errorf("indent %s: no previous sibling", id)
	}
	siblings := t.nodes[t.nodes[id].parent].children
	prev := siblings[t.IndexOf(id)-1]
	return t.Move(id, prev, Child)
}

// CanPromote reports whether id sits below a node other than the body root.
func (t *Tree) CanPromote(id ID) bool {
	n, ok := t.nodes[id]
	return ok && n.parent != "" && n.parent != t.root
}

// Promote moves id to sit directly below its parent.
func (t *Tree) Promote(id ID) error {
	if !t.CanPromote(id) {
		return fmt.Errorf("promote %s: already at top level", id)
	}
	return t.Move(id, t.nodes[id].parent, Below)
}

// Graft transplants the subtree rooted at srcID in src into t relative to
// anchor and returns the id of the grafted root. src should not be used
// afterwards.
func (t *Tree) Graft(anchor ID, pos Position, src *Tree, srcID ID) (ID, error) {
	a, ok := t.nodes[anchor]
	if !ok {
		return "", NotFoundError{ID: anchor}
	}
	if (pos == Above || pos == Below) && a.parent == "" {
		return "", fmt.Errorf("graft: %w", ErrNoParent)
	}
	top, ok := src.nodes[srcID]
	if !ok || srcID == src.root {
		return "", NotFoundError{ID: srcID}
	}
	ids := src.Flatten(srcID)
	for _, id := range ids {
		if t.Has(id) {
			return "", fmt.Errorf("graft: duplicate node id %s", id)
		}
	}
	for _, id := range ids[1:] {
		t.nodes[id] = src.nodes[id]
	}
	top.parent = ""
	if !t.AddChild(anchor, top, pos) {
		for _, id := range ids[1:] {
			delete(t.nodes, id)
		}
		return "", fmt.Errorf("graft: insert failed")
	}
	return srcID, nil
}
