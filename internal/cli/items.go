package cli

import (
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"outliner-cli/internal/outline"
	"outliner-cli/internal/render"
	"outliner-cli/internal/session"
)

func newAddCmd(app *App) *cobra.Command {
	var (
		at       string
		position string
		notes    string
		star     bool
	)
	cmd := &cobra.Command{
		Use:   "add <file> [title]",
		Short: "Add an item",
		Long: strings.TrimSpace(`
Add an item next to --at: above it, below it, or as its last child.
Without --at the item is appended at the top level. An empty title gives
the default "New Outline".
`),
		Example: strings.TrimSpace(`
  outliner add plans.opml "Call the bank"
  outliner add plans.opml "Before the first" --at 1 --position above
  outliner add plans.opml "Sub-task" --at 2 --position child --notes "details"
`),
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := outline.ParsePosition(position)
			if err != nil {
				return writeErr(cmd, err)
			}
			title := ""
			if len(args) == 2 {
				title = args[1]
			}
			return app.edit(cmd, args[0], func(s *session.Session) (any, error) {
				anchor := strings.TrimSpace(at)
				if anchor == "" {
					// No anchor and no selection appends at the top level.
					s.ClearSelection()
					pos = outline.Child
				}
				id, err := s.Add(anchor, pos, title)
				if err != nil {
					return nil, err
				}
				e := session.Edit{}
				if notes != "" {
					e.Notes = &notes
				}
				if star {
					e.Starred = &star
				}
				res, err := s.Edit(string(id), e)
				if err != nil {
					return nil, err
				}
				return nodeResult(s.Tree(), res.Node, "added"), nil
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "Anchor item (id, id prefix or path)")
	cmd.Flags().StringVar(&position, "position", "below", "Where to put the item relative to --at (above|below|child)")
	cmd.Flags().StringVar(&notes, "notes", "", "Notes for the new item")
	cmd.Flags().BoolVar(&star, "star", false, "Star the new item")
	return cmd
}

func newEditCmd(app *App) *cobra.Command {
	var (
		title     string
		notes     string
		notesFile string
	)
	cmd := &cobra.Command{
		Use:   "edit <file> <node>",
		Short: "Change an item's title or notes",
		Example: strings.TrimSpace(`
  outliner edit plans.opml 1 --title "Groceries"
  outliner edit plans.opml 1.2 --notes "- eggs\n- milk"
  cat notes.md | outliner edit plans.opml 1.2 --notes-file -
`),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := session.Edit{}
			if cmd.Flags().Changed("title") {
				e.Title = &title
			}
			if cmd.Flags().Changed("notes") {
				e.Notes = &notes
			}
			if notesFile != "" {
				b, err := readNotes(cmd.InOrStdin(), notesFile)
				if err != nil {
					return writeErr(cmd, err)
				}
				e.Notes = &b
			}
			if e.Empty() {
				return writeErr(cmd, usageErr("nothing to change (use --title, --notes or --notes-file)"))
			}
			return app.edit(cmd, args[0], func(s *session.Session) (any, error) {
				res, err := s.Edit(args[1], e)
				if err != nil {
					return nil, err
				}
				verb := "unchanged"
				if res.Changed {
					verb = "edited"
				}
				return nodeResult(s.Tree(), res.Node, verb), nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&notes, "notes", "", "New notes (replaces existing notes)")
	cmd.Flags().StringVar(&notesFile, "notes-file", "", "Read notes from a file (- for stdin)")
	return cmd
}

func readNotes(stdin io.Reader, path string) (string, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(b), "\n"), nil
}

// newFlagCmd builds the complete/star commands, which differ only in the
// field they set.
func newFlagCmd(app *App, use, short, verb, undoVerb string, set func(e *session.Edit, v *bool)) *cobra.Command {
	var undo bool
	cmd := &cobra.Command{
		Use:   use + " <file> <node>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := !undo
			e := session.Edit{}
			set(&e, &v)
			return app.edit(cmd, args[0], func(s *session.Session) (any, error) {
				res, err := s.Edit(args[1], e)
				if err != nil {
					return nil, err
				}
				word := verb
				if undo {
					word = undoVerb
				}
				if !res.Changed {
					word = "unchanged"
				}
				return nodeResult(s.Tree(), res.Node, word), nil
			})
		},
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "Clear the flag instead of setting it")
	return cmd
}

func newCompleteCmd(app *App) *cobra.Command {
	return newFlagCmd(app, "complete", "Mark an item completed", "completed", "reopened",
		func(e *session.Edit, v *bool) { e.Completed = v })
}

func newStarCmd(app *App) *cobra.Command {
	return newFlagCmd(app, "star", "Star an item", "starred", "unstarred",
		func(e *session.Edit, v *bool) { e.Starred = v })
}

func newDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <file> <node>",
		Short: "Delete an item and everything below it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.edit(cmd, args[0], func(s *session.Session) (any, error) {
				n, err := s.Node(args[1])
				if err != nil {
					return nil, err
				}
				title, removed := n.Title, s.Tree().CountDescendants(n.ID)+1
				next, err := s.Delete(string(n.ID))
				if err != nil {
					return nil, err
				}
				return out(map[string]any{
					"deleted":  string(n.ID),
					"removed":  removed,
					"selected": string(next),
				}, func(p *render.Printer) error {
					return p.Message("deleted %s (%d items)", title, removed)
				}), nil
			})
		},
	}
}

func newMoveCmd(app *App) *cobra.Command {
	var position string
	cmd := &cobra.Command{
		Use:   "move <file> <node> <target>",
		Short: "Move an item (with its children) relative to another",
		Long: strings.TrimSpace(`
Move node above or below target, or make it target's first child. An item
cannot be moved onto itself or into its own subtree.
`),
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := outline.ParsePosition(position)
			if err != nil {
				return writeErr(cmd, err)
			}
			return app.edit(cmd, args[0], func(s *session.Session) (any, error) {
				if err := s.Move(args[1], args[2], pos); err != nil {
					return nil, err
				}
				n, _ := s.Node("")
				return nodeResult(s.Tree(), n, "moved"), nil
			})
		},
	}
	cmd.Flags().StringVar(&position, "position", "below", "above|below|child")
	return cmd
}

func newIndentCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "indent <file> <node>",
		Short: "Make an item the first child of its previous sibling",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.edit(cmd, args[0], func(s *session.Session) (any, error) {
				if err := s.Indent(args[1]); err != nil {
					return nil, err
				}
				n, _ := s.Node("")
				return nodeResult(s.Tree(), n, "indented"), nil
			})
		},
	}
}

func newPromoteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "promote <file> <node>",
		Aliases: []string{"outdent"},
		Short:   "Move an item out of its parent, directly below it",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.edit(cmd, args[0], func(s *session.Session) (any, error) {
				if err := s.Promote(args[1]); err != nil {
					return nil, err
				}
				n, _ := s.Node("")
				return nodeResult(s.Tree(), n, "promoted"), nil
			})
		},
	}
}

func newDuplicateCmd(app *App) *cobra.Command {
	var leg bool
	cmd := &cobra.Command{
		Use:   "duplicate <file> <node>",
		Short: "Copy an item directly below itself",
		Long:  "Copy an item's content (not its children) below it. With --leg the whole subtree is copied.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.edit(cmd, args[0], func(s *session.Session) (any, error) {
				dup := s.Duplicate
				if leg {
					dup = s.DuplicateLeg
				}
				id, err := dup(args[1])
				if err != nil {
					return nil, err
				}
				n, _ := s.Tree().Node(id)
				return nodeResult(s.Tree(), n, "duplicated as"), nil
			})
		},
	}
	cmd.Flags().BoolVar(&leg, "leg", false, "Include the item's children")
	return cmd
}

func newSortCmd(app *App) *cobra.Command {
	var (
		by   string
		desc bool
	)
	cmd := &cobra.Command{
		Use:   "sort <file> [node]",
		Short: "Sort the children of node (or the top level)",
		Long: strings.TrimSpace(`
Sort one level. Keys: name (case-insensitive), starred (starred first),
created, updated, completed (newest first, undated last). --desc reverses
the order.
`),
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := outline.ParseSortKey(by)
			if err != nil {
				return writeErr(cmd, err)
			}
			ref := ""
			if len(args) == 2 {
				ref = args[1]
			}
			return app.edit(cmd, args[0], func(s *session.Session) (any, error) {
				parent, err := resolveOrRoot(s, ref)
				if err != nil {
					return nil, err
				}
				if err := s.Sort(parent, key, !desc); err != nil {
					return nil, err
				}
				dir := "ascending"
				if desc {
					dir = "descending"
				}
				count := len(s.Tree().Children(parent))
				return out(map[string]any{
					"parent":    string(parent),
					"key":       key.String(),
					"ascending": !desc,
					"count":     count,
				}, func(p *render.Printer) error {
					return p.Message("sorted %d items by %s (%s)", count, key, dir)
				}), nil
			})
		},
	}
	cmd.Flags().StringVar(&by, "by", "name", "Sort key (name|starred|created|updated|completed)")
	cmd.Flags().BoolVar(&desc, "desc", false, "Descending order")
	return cmd
}

func newExpandCmd(app *App) *cobra.Command {
	return newExpansionCmd(app, "expand", "expanded", "Expand an item (or, with -r and no node, everything)", true)
}

func newCollapseCmd(app *App) *cobra.Command {
	return newExpansionCmd(app, "collapse", "collapsed", "Collapse an item (or, with -r and no node, everything)", false)
}

func newExpansionCmd(app *App, use, verb, short string, expanded bool) *cobra.Command {
	var recursive bool
	cmd := &cobra.Command{
		Use:   use + " <file> [node]",
		Short: short,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := ""
			if len(args) == 2 {
				ref = args[1]
			}
			if ref == "" && !recursive {
				return writeErr(cmd, usageErr("%s needs a node, or -r for the whole document", use))
			}
			return app.edit(cmd, args[0], func(s *session.Session) (any, error) {
				var err error
				if expanded {
					err = s.Expand(ref, recursive)
				} else {
					err = s.Collapse(ref, recursive)
				}
				if err != nil {
					return nil, err
				}
				target := "document"
				if ref != "" {
					n, _ := s.Node(ref)
					target = n.Title
				}
				return out(map[string]any{
					"expanded":  expanded,
					"recursive": recursive,
				}, func(p *render.Printer) error {
					return p.Message("%s %s", verb, target)
				}), nil
			})
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Apply to every descendant too")
	return cmd
}
