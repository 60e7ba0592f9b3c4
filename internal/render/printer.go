package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"outliner-cli/internal/outline"
	"outliner-cli/internal/store"
)

const defaultWidth = 100

type Options struct {
	// Width truncates lines. Zero means 100 columns.
	Width   int
	NoColor bool
}

// Printer writes human-readable output to one writer.
type Printer struct {
	w     io.Writer
	width int
	plain bool
	dark  bool
	st    styles
}

func New(w io.Writer, opts Options) *Printer {
	r := lipgloss.NewRenderer(w)
	profile := colorProfile(w, opts.NoColor)
	r.SetColorProfile(profile)
	dark := darkBackground()
	r.SetHasDarkBackground(dark)
	width := opts.Width
	if width <= 0 {
		width = defaultWidth
	}
	return &Printer{
		w:     w,
		width: width,
		plain: profile == termenv.Ascii,
		dark:  dark,
		st:    newStyles(r),
	}
}

// TreeOptions control Tree output.
type TreeOptions struct {
	// All ignores collapsed state and prints every descendant.
	All bool
	// IDs prefixes each row with a short node id.
	IDs bool
	// Selected is highlighted when set.
	Selected outline.ID
}

// Tree prints the items below root, one per line, indented by depth.
// Collapsed items show how many descendants they hide.
func (p *Printer) Tree(tree *outline.Tree, root outline.ID, opts TreeOptions) error {
	base := 0
	if root != tree.Root() {
		n, ok := tree.Node(root)
		if !ok {
			return outline.NotFoundError{ID: root}
		}
		if err := p.line(p.row(tree, n, 0, opts)); err != nil {
			return err
		}
		if !n.Expanded && !opts.All {
			return nil
		}
		base = 1
	}
	return p.children(tree, root, base, opts)
}

func (p *Printer) children(tree *outline.Tree, id outline.ID, depth int, opts TreeOptions) error {
	for _, c := range tree.Children(id) {
		n, _ := tree.Node(c)
		if err := p.line(p.row(tree, n, depth, opts)); err != nil {
			return err
		}
		if n.Expanded || opts.All {
			if err := p.children(tree, c, depth+1, opts); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Printer) row(tree *outline.Tree, n *outline.Node, depth int, opts TreeOptions) string {
	var b strings.Builder
	if opts.IDs {
		b.WriteString(p.st.muted.Render(shortID(n.ID)) + " ")
	}
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(p.st.muted.Render(twisty(n, opts.All)) + " ")
	b.WriteString(p.st.muted.Render(tree.Path(n.ID)) + " ")
	b.WriteString(p.title(n))
	if n.Starred {
		b.WriteString(" " + p.st.star.Render("★"))
	}
	if n.Notes != "" {
		b.WriteString(" " + p.st.muted.Render("✎"))
	}
	if n.HasChildren() && !n.Expanded && !opts.All {
		b.WriteString(" " + p.st.muted.Render(fmt.Sprintf("(+%d)", tree.CountDescendants(n.ID))))
	}
	line := b.String()
	if n.ID == opts.Selected {
		line = p.st.match.Render(line)
	}
	return line
}

func (p *Printer) title(n *outline.Node) string {
	if n.Completed {
		if p.plain {
			return "[x] " + n.Title
		}
		return p.st.done.Render(n.Title)
	}
	return p.st.text.Render(n.Title)
}

func twisty(n *outline.Node, all bool) string {
	switch {
	case !n.HasChildren():
		return "•"
	case n.Expanded || all:
		return "▾"
	default:
		return "▸"
	}
}

func shortID(id outline.ID) string {
	s := string(id)
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// Matches prints search hits with their dotted path, followed by the first
// line of their notes.
func (p *Printer) Matches(tree *outline.Tree, nodes []*outline.Node) error {
	if len(nodes) == 0 {
		return p.line(p.st.muted.Render("no matches"))
	}
	for _, n := range nodes {
		row := p.st.muted.Render(shortID(n.ID)) + " " +
			p.st.accent.Render(tree.Path(n.ID)) + " " + p.title(n)
		if n.Starred {
			row += " " + p.st.star.Render("★")
		}
		if err := p.line(row); err != nil {
			return err
		}
		if first, _, _ := strings.Cut(strings.TrimSpace(n.Notes), "\n"); first != "" {
			if err := p.line("    " + p.st.muted.Render(first)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Node prints one item in detail, notes rendered as markdown.
func (p *Printer) Node(tree *outline.Tree, n *outline.Node) error {
	lines := []string{
		p.st.heading.Render(n.Title),
		p.field("id", string(n.ID)),
		p.field("path", tree.Path(n.ID)),
		p.field("created", formatTime(n.CreatedAt)),
		p.field("updated", formatTime(n.UpdatedAt)),
	}
	if n.Completed {
		lines = append(lines, p.field("completed", formatTime(n.CompletedAt)))
	}
	if n.Starred {
		lines = append(lines, p.field("starred", "yes"))
	}
	if c := len(tree.Children(n.ID)); c > 0 {
		lines = append(lines, p.field("children", fmt.Sprintf("%d (%d below)", c, tree.CountDescendants(n.ID))))
	}
	for k, v := range n.Attrs.All() {
		lines = append(lines, p.field(k, v))
	}
	for _, l := range lines {
		if err := p.line(l); err != nil {
			return err
		}
	}
	if notes := renderMarkdown(n.Notes, p.width, markdownStyle(p.plain, p.dark)); notes != "" {
		_, err := fmt.Fprintln(p.w, "\n"+notes)
		return err
	}
	return nil
}

func (p *Printer) field(k, v string) string {
	return p.st.muted.Render(fmt.Sprintf("%-10s", k)) + " " + v
}

// Stats prints item counts.
func (p *Printer) Stats(name string, s outline.Stats) error {
	rows := [][2]string{
		{"items", fmt.Sprint(s.Nodes)},
		{"completed", fmt.Sprint(s.Completed)},
		{"incomplete", fmt.Sprint(s.Incomplete())},
		{"starred", fmt.Sprint(s.Starred)},
	}
	if err := p.line(p.st.heading.Render(name)); err != nil {
		return err
	}
	for _, r := range rows {
		if err := p.line(p.field(r[0], r[1])); err != nil {
			return err
		}
	}
	return nil
}

// History lists saved snapshots, newest first.
func (p *Printer) History(snaps []store.Snapshot) error {
	if len(snaps) == 0 {
		return p.line(p.st.muted.Render("no history"))
	}
	for _, s := range snaps {
		row := fmt.Sprintf("%s  %s  %s",
			p.st.accent.Render(fmt.Sprintf("%4d", s.ID)),
			formatTime(s.SavedAt.Local()),
			p.st.muted.Render(fmt.Sprintf("%d items", s.NodeCount)),
		)
		if err := p.line(row); err != nil {
			return err
		}
	}
	return nil
}

// Message prints a single muted status line.
func (p *Printer) Message(format string, args ...any) error {
	return p.line(p.st.muted.Render(fmt.Sprintf(format, args...)))
}

func (p *Printer) line(s string) error {
	if xansi.StringWidth(s) > p.width {
		s = xansi.Truncate(s, p.width, "…")
	}
	_, err := fmt.Fprintln(p.w, s)
	return err
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}
