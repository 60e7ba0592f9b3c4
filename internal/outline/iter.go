package outline

import (
	"iter"
	"slices"
)

// Iterator walks the subtree below a root in depth-first pre-order. The root
// itself is never yielded. Call Reset to start again.
type Iterator struct {
	tree    *Tree
	root    ID
	current ID
	started bool
	done    bool
}

func (t *Tree) Iterator(root ID) *Iterator {
	return &Iterator{tree: t, root: root}
}

func (it *Iterator) Reset() {
	it.current = ""
	it.started = false
	it.done = false
}

// Next returns the next node, or false once the walk is finished.
func (it *Iterator) Next() (*Node, bool) {
	if it.done {
		return nil, false
	}
	if !it.started {
		it.started = true
		return it.advanceTo(it.firstChild(it.root))
	}
	if c := it.firstChild(it.current); c != "" {
		return it.advanceTo(c)
	}
	for n := it.current; n != it.root; {
		parent := it.tree.nodes[n].parent
		if parent == "" {
			break
		}
		siblings := it.tree.nodes[parent].children
		if idx := slices.Index(siblings, n); idx >= 0 && idx+1 < len(siblings) {
			return it.advanceTo(siblings[idx+1])
		}
		n = parent
	}
	return it.advanceTo("")
}

func (it *Iterator) firstChild(id ID) ID {
	n, ok := it.tree.nodes[id]
	if !ok || len(n.children) == 0 {
		return ""
	}
	return n.children[0]
}

func (it *Iterator) advanceTo(id ID) (*Node, bool) {
	if id == "" {
		it.done = true
		it.current = ""
		return nil, false
	}
	it.current = id
	return it.tree.nodes[id], true
}

// Walk yields every node below root in pre-order.
func (t *Tree) Walk(root ID) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		it := t.Iterator(root)
		for {
			n, ok := it.Next()
			if !ok || !yield(n) {
				return
			}
		}
	}
}
