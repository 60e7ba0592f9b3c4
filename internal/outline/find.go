package outline

import (
	"fmt"
	"strconv"
	"strings"
)

// FindByID returns node id when it is from itself or lies below it.
func (t *Tree) FindByID(from, id ID) (*Node, bool) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, false
	}
	if id == from || t.IsDescendant(id, from) {
		return n, true
	}
	return nil, false
}

// Find looks id up anywhere below the body root.
func (t *Tree) Find(id ID) (*Node, bool) {
	if id == t.root {
		return nil, false
	}
	return t.FindByID(t.root, id)
}

// Resolve turns a user reference into a node id. A reference is a full id, a
// unique id prefix, or a 1-based dotted path such as "2.1" (second top-level
// item, its first child).
func (t *Tree) Resolve(ref string) (ID, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("empty node reference")
	}
	if id, ok := t.resolvePath(ref); ok {
		return id, nil
	}
	if _, ok := t.Find(ID(ref)); ok {
		return ID(ref), nil
	}
	var matches []ID
	for n := range t.Walk(t.root) {
		if strings.HasPrefix(string(n.ID), ref) {
			matches = append(matches, n.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", NotFoundError{ID: ID(ref)}
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("ambiguous node reference %q matches %d nodes", ref, len(matches))
	}
}

func (t *Tree) resolvePath(ref string) (ID, bool) {
	cur := t.root
	for _, part := range strings.Split(ref, ".") {
		i, err := strconv.Atoi(part)
		if err != nil || i < 1 {
			return "", false
		}
		kids := t.nodes[cur].children
		if i > len(kids) {
			return "", false
		}
		cur = kids[i-1]
	}
	return cur, true
}

// Path is the 1-based dotted path of id, the inverse of Resolve for paths.
func (t *Tree) Path(id ID) string {
	if id == t.root || !t.Has(id) {
		return ""
	}
	var parts []string
	for cur := id; cur != t.root; {
		idx := t.IndexOf(cur)
		if idx < 0 {
			return ""
		}
		parts = append(parts, strconv.Itoa(idx+1))
		cur = t.nodes[cur].parent
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}
