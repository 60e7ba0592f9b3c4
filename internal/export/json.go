package export

import (
	"io"
	"time"

	"github.com/goccy/go-json"

	"outliner-cli/internal/outline"
)

// Item is the JSON projection of a node. It is one-way: nothing reads it back.
type Item struct {
	Title       string  `json:"title"`
	Notes       string  `json:"notes"`
	Children    []Item  `json:"children"`
	Starred     bool    `json:"starred"`
	Created     *string `json:"created"`
	LastUpdated *string `json:"lastupdated"`
	Completed   *string `json:"completed"`
}

// Leg projects id and its whole subtree.
func Leg(tree *outline.Tree, id outline.ID) (Item, bool) {
	n, ok := tree.Node(id)
	if !ok {
		return Item{}, false
	}
	it := Item{
		Title:       n.Title,
		Notes:       n.Notes,
		Children:    []Item{},
		Starred:     n.Starred,
		Created:     isoDate(n.CreatedAt),
		LastUpdated: isoDate(n.UpdatedAt),
		Completed:   isoDate(n.CompletedAt),
	}
	for _, c := range tree.Children(id) {
		if child, ok := Leg(tree, c); ok {
			it.Children = append(it.Children, child)
		}
	}
	return it, true
}

// Items projects every top-level item of the tree.
func Items(tree *outline.Tree) []Item {
	out := []Item{}
	for _, c := range tree.Children(tree.Root()) {
		if it, ok := Leg(tree, c); ok {
			out = append(out, it)
		}
	}
	return out
}

// WriteJSON writes the leg rooted at id, or the whole outline when id is the
// body root or empty.
func WriteJSON(w io.Writer, tree *outline.Tree, id outline.ID, pretty bool) error {
	var v any
	if id == "" || id == tree.Root() {
		v = Items(tree)
	} else {
		it, ok := Leg(tree, id)
		if !ok {
			return outline.NotFoundError{ID: id}
		}
		v = it
	}
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func isoDate(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.UTC().Truncate(time.Second).Format(time.RFC3339)
	return &s
}
