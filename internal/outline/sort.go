package outline

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type SortKey int

const (
	SortByName SortKey = iota
	SortByStarred
	SortByCreated
	SortByUpdated
	SortByCompleted
)

func (k SortKey) String() string {
	switch k {
	case SortByName:
		return "name"
	case SortByStarred:
		return "starred"
	case SortByCreated:
		return "created"
	case SortByUpdated:
		return "updated"
	case SortByCompleted:
		return "completed"
	default:
		return fmt.Sprintf("SortKey(%d)", int(k))
	}
}

func ParseSortKey(s string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "name", "title", "text":
		return SortByName, nil
	case "starred", "star":
		return SortByStarred, nil
	case "created", "creation":
		return SortByCreated, nil
	case "updated", "modified":
		return SortByUpdated, nil
	case "completed", "completion":
		return SortByCompleted, nil
	default:
		return 0, fmt.Errorf("invalid sort key %q (expected name|starred|created|updated|completed)", s)
	}
}

// SortChildren reorders the children of parent. Names compare
// case-insensitively; starred items come first for SortByStarred; the date
// keys put newer items first and undated ones last. Ties fall back to name.
// Descending is the exact reverse of ascending. The parent is marked changed.
func (t *Tree) SortChildren(parent ID, key SortKey, ascending bool) error {
	p, ok := t.nodes[parent]
	if !ok {
		return NotFoundError{ID: parent}
	}
	col := collate.New(language.Und, collate.IgnoreCase)
	byName := func(a, b *Node) int {
		return col.CompareString(a.Title, b.Title)
	}
	byDate := func(get func(*Node) time.Time) func(a, b *Node) int {
		return func(a, b *Node) int {
			if c := get(b).Compare(get(a)); c != 0 {
				return c
			}
			return byName(a, b)
		}
	}
	var cmp func(a, b *Node) int
	switch key {
	case SortByName:
		cmp = byName
	case SortByStarred:
		cmp = func(a, b *Node) int {
			if a.Starred != b.Starred {
				if a.Starred {
					return -1
				}
				return 1
			}
			return byName(a, b)
		}
	case SortByCreated:
		cmp = byDate(func(n *Node) time.Time { return n.CreatedAt })
	case SortByUpdated:
		cmp = byDate(func(n *Node) time.Time { return n.UpdatedAt })
	case SortByCompleted:
		cmp = byDate(func(n *Node) time.Time { return n.CompletedAt })
	default:
		return fmt.Errorf("sort: unknown key %d", int(key))
	}

	slices.SortStableFunc(p.children, func(a, b ID) int {
		return cmp(t.nodes[a], t.nodes[b])
	})
	if !ascending {
		slices.Reverse(p.children)
	}
	p.changed = true
	t.touch()
	return nil
}
