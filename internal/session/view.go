package session

import (
	"outliner-cli/internal/outline"
)

// SortLevel sorts the siblings of ref (the selection when empty) by key.
// Sorting the same level by the same key again flips the direction; any
// other sort starts ascending. It returns the direction used.
func (s *Session) SortLevel(ref string, key outline.SortKey) (ascending bool, err error) {
	id, err := s.resolve(ref)
	if err != nil {
		return false, err
	}
	parent, ok := s.doc.Tree.Parent(id)
	if !ok {
		return false, outline.NotFoundError{ID: id}
	}
	ascending = true
	if last := s.lastSort; last != nil && last.parent == parent && last.key == key {
		ascending = !last.ascending
	}
	if err := s.Sort(parent, key, ascending); err != nil {
		return false, err
	}
	return ascending, nil
}

// Sort orders the children of parent and remembers the sort for SortLevel.
func (s *Session) Sort(parent outline.ID, key outline.SortKey, ascending bool) error {
	if err := s.doc.Tree.SortChildren(parent, key, ascending); err != nil {
		return err
	}
	s.lastSort = &sortState{parent: parent, key: key, ascending: ascending}
	s.log.Debug("level sorted", "parent", parent, "key", key.String(), "ascending", ascending)
	return nil
}

// Expand opens ref, and its whole subtree when recursive. An empty ref with
// recursive set expands the whole document.
func (s *Session) Expand(ref string, recursive bool) error {
	return s.setExpansion(ref, true, recursive)
}

func (s *Session) Collapse(ref string, recursive bool) error {
	return s.setExpansion(ref, false, recursive)
}

func (s *Session) setExpansion(ref string, expanded, recursive bool) error {
	tree := s.doc.Tree
	if ref == "" && recursive {
		for _, c := range tree.Children(tree.Root()) {
			tree.SetExpansion(c, expanded, true)
		}
		return nil
	}
	id, err := s.resolve(ref)
	if err != nil {
		return err
	}
	tree.SetExpansion(id, expanded, recursive)
	return nil
}

// Search runs the filter over the whole document.
func (s *Session) Search(opts outline.FilterOptions) []*outline.Node {
	if opts.Now.IsZero() {
		opts.Now = s.doc.Tree.Now()
	}
	return s.doc.Tree.Filter(s.doc.Tree.Root(), opts)
}

// Reveal selects ref and expands its ancestors so it is visible.
func (s *Session) Reveal(ref string) (outline.ID, error) {
	id, err := s.resolve(ref)
	if err != nil {
		return "", err
	}
	s.doc.Tree.Reveal(id)
	s.selected = id
	return id, nil
}

// Stats counts the whole document, or the subtree below ref when ref is set.
func (s *Session) Stats(ref string) (outline.Stats, error) {
	root := s.doc.Tree.Root()
	if ref != "" {
		id, err := s.doc.Tree.Resolve(ref)
		if err != nil {
			return outline.Stats{}, err
		}
		root = id
	}
	return s.doc.Tree.Stats(root), nil
}
