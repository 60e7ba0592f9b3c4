package cli

import (
	"time"

	"github.com/goccy/go-json"

	"outliner-cli/internal/outline"
	"outliner-cli/internal/render"
)

// result pairs machine-readable data with an optional text rendering.
// Machine formats see {"data": ...}, matching every other command.
type result struct {
	data any
	text func(p *render.Printer) error
}

func out(data any, text func(p *render.Printer) error) result {
	return result{data: data, text: text}
}

func (r result) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"data": r.data})
}

func (r result) print(p *render.Printer) error {
	if r.text == nil {
		return nil
	}
	return r.text(p)
}

// nodeView is the machine representation of a single item.
type nodeView struct {
	ID          string            `json:"id"`
	Path        string            `json:"path"`
	Title       string            `json:"title"`
	Notes       string            `json:"notes,omitempty"`
	Completed   bool              `json:"completed"`
	Starred     bool              `json:"starred"`
	Expanded    bool              `json:"expanded"`
	Children    int               `json:"children"`
	CreatedAt   *string           `json:"createdAt"`
	UpdatedAt   *string           `json:"updatedAt"`
	CompletedAt *string           `json:"completedAt,omitempty"`
	Attrs       map[string]string `json:"attrs,omitempty"`
}

func viewNode(tree *outline.Tree, n *outline.Node) nodeView {
	v := nodeView{
		ID:          string(n.ID),
		Path:        tree.Path(n.ID),
		Title:       n.Title,
		Notes:       n.Notes,
		Completed:   n.Completed,
		Starred:     n.Starred,
		Expanded:    n.Expanded,
		Children:    len(tree.Children(n.ID)),
		CreatedAt:   isoTime(n.CreatedAt),
		UpdatedAt:   isoTime(n.UpdatedAt),
		CompletedAt: isoTime(n.CompletedAt),
	}
	if n.Attrs.Len() > 0 {
		v.Attrs = map[string]string{}
		for k, val := range n.Attrs.All() {
			v.Attrs[k] = val
		}
	}
	return v
}

func viewNodes(tree *outline.Tree, nodes []*outline.Node) []nodeView {
	out := make([]nodeView, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, viewNode(tree, n))
	}
	return out
}

func isoTime(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

// nodeResult prints a one-line confirmation in text mode.
func nodeResult(tree *outline.Tree, n *outline.Node, verb string) result {
	return out(viewNode(tree, n), func(p *render.Printer) error {
		return p.Message("%s %s %s", verb, tree.Path(n.ID), n.Title)
	})
}
