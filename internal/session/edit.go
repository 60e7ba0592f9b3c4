package session

import (
	"errors"
	"fmt"

	"outliner-cli/internal/clipboard"
	"outliner-cli/internal/opml"
	"outliner-cli/internal/outline"
)

// Add inserts a new item relative to anchor (the selection when anchor is
// empty) and selects it. With no anchor and no selection the item becomes
// the last top-level one.
func (s *Session) Add(anchor string, pos outline.Position, title string) (outline.ID, error) {
	tree := s.doc.Tree
	target, err := s.resolve(anchor)
	switch {
	case errors.Is(err, ErrNoSelection):
		target, pos = tree.Root(), outline.Child
	case err != nil:
		return "", err
	}
	n := outline.NewNode(title, tree.Now())
	if !tree.AddChild(target, n, pos) {
		return "", fmt.Errorf("add %s %s: %w", pos, target, outline.ErrNoParent)
	}
	s.selected = n.ID
	s.log.Debug("item added", "id", n.ID, "anchor", target, "position", pos.String())
	return n.ID, nil
}

func (s *Session) AddAbove(anchor, title string) (outline.ID, error) {
	return s.Add(anchor, outline.Above, title)
}

func (s *Session) AddBelow(anchor, title string) (outline.ID, error) {
	return s.Add(anchor, outline.Below, title)
}

func (s *Session) AddChild(anchor, title string) (outline.ID, error) {
	return s.Add(anchor, outline.Child, title)
}

// Edit lists content changes; nil fields are left alone.
type Edit struct {
	Title     *string
	Notes     *string
	Completed *bool
	Starred   *bool
}

func (e Edit) Empty() bool {
	return e.Title == nil && e.Notes == nil && e.Completed == nil && e.Starred == nil
}

type EditResult struct {
	Node    *outline.Node
	Changed bool
}

// Edit applies e to ref. Fields already holding the requested value do not
// count as changes.
func (s *Session) Edit(ref string, e Edit) (EditResult, error) {
	id, err := s.resolve(ref)
	if err != nil {
		return EditResult{}, err
	}
	n, err := s.node(id)
	if err != nil {
		return EditResult{}, err
	}
	tree := s.doc.Tree
	changed := false
	if e.Title != nil {
		changed = tree.SetTitle(id, *e.Title) || changed
	}
	if e.Notes != nil {
		changed = tree.SetNotes(id, *e.Notes) || changed
	}
	if e.Completed != nil {
		changed = tree.SetCompleted(id, *e.Completed) || changed
	}
	if e.Starred != nil {
		changed = tree.SetStarred(id, *e.Starred) || changed
	}
	return EditResult{Node: n, Changed: changed}, nil
}

// Delete removes ref and its subtree and selects the item the tree suggests.
func (s *Session) Delete(ref string) (outline.ID, error) {
	id, err := s.resolve(ref)
	if err != nil {
		return "", err
	}
	removed := s.doc.Tree.CountDescendants(id) + 1
	next, ok := s.doc.Tree.Delete(id)
	if !ok {
		return "", outline.NotFoundError{ID: id}
	}
	if next == s.doc.Tree.Root() {
		next = ""
	}
	s.selected = next
	if s.lastSort != nil && !s.doc.Tree.Has(s.lastSort.parent) {
		s.lastSort = nil
	}
	s.log.Debug("item deleted", "id", id, "removed", removed)
	return next, nil
}

// Move places src relative to target. The moved item stays selected.
func (s *Session) Move(src, target string, pos outline.Position) error {
	srcID, err := s.resolve(src)
	if err != nil {
		return err
	}
	targetID, err := s.doc.Tree.Resolve(target)
	if err != nil {
		return err
	}
	if err := s.doc.Tree.Move(srcID, targetID, pos); err != nil {
		return err
	}
	s.selected = srcID
	return nil
}

func (s *Session) Indent(ref string) error {
	id, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := s.doc.Tree.Indent(id); err != nil {
		return err
	}
	s.selected = id
	return nil
}

func (s *Session) Promote(ref string) error {
	id, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := s.doc.Tree.Promote(id); err != nil {
		return err
	}
	s.selected = id
	return nil
}

// Duplicate copies ref's content (not its children) into a new item directly
// below it and selects the copy.
func (s *Session) Duplicate(ref string) (outline.ID, error) {
	id, err := s.resolve(ref)
	if err != nil {
		return "", err
	}
	cp, err := s.doc.Tree.Duplicate(id)
	if err != nil {
		return "", err
	}
	s.selected = cp
	return cp, nil
}

// DuplicateLeg copies ref with its whole subtree below it. It goes through
// the same OPML fragment format as copy and paste.
func (s *Session) DuplicateLeg(ref string) (outline.ID, error) {
	id, err := s.resolve(ref)
	if err != nil {
		return "", err
	}
	xml, err := s.doc.RenderSubtreeXML(id, true)
	if err != nil {
		return "", err
	}
	frag, top, err := opml.ParseFragment(xml, s.treeOpt...)
	if err != nil {
		return "", err
	}
	cp, err := s.doc.Tree.Graft(id, outline.Below, frag, top)
	if err != nil {
		return "", err
	}
	s.selected = cp
	return cp, nil
}

// Copy puts ref and its subtree on the clipboard board.
func (s *Session) Copy(ref string) (clipboard.Payload, error) {
	id, err := s.resolve(ref)
	if err != nil {
		return clipboard.Payload{}, err
	}
	xml, err := s.doc.RenderSubtreeXML(id, true)
	if err != nil {
		return clipboard.Payload{}, err
	}
	p := clipboard.Payload{SourceFile: s.Path(), ContentXML: xml}
	if err := s.board.Write(p); err != nil {
		return clipboard.Payload{}, fmt.Errorf("copy: %w", err)
	}
	s.log.Debug("leg copied", "id", id, "bytes", len(xml))
	return p, nil
}

// Cut copies ref and then deletes it.
func (s *Session) Cut(ref string) (outline.ID, error) {
	id, err := s.resolve(ref)
	if err != nil {
		return "", err
	}
	if _, err := s.Copy(string(id)); err != nil {
		return "", err
	}
	return s.Delete(string(id))
}

// Paste inserts the clipboard leg below the selection, or as the last
// top-level item when nothing is selected, and selects it.
func (s *Session) Paste() (outline.ID, error) {
	p, err := s.board.Read()
	if errors.Is(err, clipboard.ErrEmpty) {
		return "", opml.ErrNothingToPaste
	}
	if err != nil {
		return "", fmt.Errorf("paste: %w", err)
	}
	frag, top, err := opml.ParseFragment(p.ContentXML, s.treeOpt...)
	if err != nil {
		return "", err
	}

	tree := s.doc.Tree
	anchor, pos := s.Selected(), outline.Below
	if anchor == "" {
		kids := tree.Children(tree.Root())
		if len(kids) == 0 {
			anchor, pos = tree.Root(), outline.Child
		} else {
			anchor = kids[len(kids)-1]
		}
	}
	id, err := tree.Graft(anchor, pos, frag, top)
	if err != nil {
		return "", err
	}
	if parent, ok := tree.Parent(id); ok {
		tree.MarkChanged(parent)
	}
	s.selected = id
	s.log.Debug("leg pasted", "id", id, "source", p.SourceFile)
	return id, nil
}
