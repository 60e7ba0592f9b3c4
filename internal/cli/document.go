package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"outliner-cli/internal/export"
	"outliner-cli/internal/outline"
	"outliner-cli/internal/render"
	"outliner-cli/internal/session"
	"outliner-cli/internal/store"
)

func newNewCmd(app *App) *cobra.Command {
	var title string
	var force bool
	cmd := &cobra.Command{
		Use:   "new <file>",
		Short: "Create a new outline file with one empty item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err == nil && !force {
				return writeErr(cmd, fmt.Errorf("%s already exists (use --force to overwrite)", path))
			}
			s := session.New(app.sessionOptions(cmd.Context(), true))
			if t := strings.TrimSpace(title); t != "" {
				s.Document().Header.Title = t
			}
			if err := s.Save(cmd.Context(), path); err != nil {
				return writeErr(cmd, err)
			}
			doc := s.Document()
			return app.writeOut(cmd, out(map[string]any{
				"path":  doc.Path(),
				"title": doc.Header.Title,
			}, func(p *render.Printer) error {
				return p.Message("created %s", doc.Path())
			}))
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Document title (default \"New Item\")")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func newShowCmd(app *App) *cobra.Command {
	var all, ids bool
	cmd := &cobra.Command{
		Use:   "show <file> [node]",
		Short: "Print the outline (or the leg below node)",
		Long: strings.TrimSpace(`
Print the outline as an indented tree. Collapsed items hide their
descendants unless --all is given.

Node references are a full id, a unique id prefix, or a 1-based path
such as 2.1 (second top-level item, its first child).
`),
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openSession(cmd, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			tree := s.Tree()
			root := tree.Root()
			if len(args) == 2 {
				if root, err = s.Resolve(args[1]); err != nil {
					return writeErr(cmd, err)
				}
			}
			var data any
			if root == tree.Root() {
				data = export.Items(tree)
			} else {
				data, _ = export.Leg(tree, root)
			}
			return app.writeOut(cmd, out(data, func(p *render.Printer) error {
				return p.Tree(tree, root, render.TreeOptions{All: all, IDs: ids})
			}))
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Show collapsed items' descendants too")
	cmd.Flags().BoolVar(&ids, "ids", false, "Prefix rows with short ids")
	return cmd
}

func newNodeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "node <file> <node>",
		Short: "Show one item in detail",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openSession(cmd, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			n, err := s.Node(args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			return app.writeOut(cmd, out(viewNode(s.Tree(), n), func(p *render.Printer) error {
				return p.Node(s.Tree(), n)
			}))
		},
	}
}

func newStatsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <file> [node]",
		Short: "Count items, completed items and starred items",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openSession(cmd, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			ref, name := "", s.Document().Name()
			if len(args) == 2 {
				ref = args[1]
			}
			st, err := s.Stats(ref)
			if err != nil {
				return writeErr(cmd, err)
			}
			if ref != "" {
				n, _ := s.Node(ref)
				name = n.Title
			}
			return app.writeOut(cmd, out(map[string]any{
				"nodes":      st.Nodes,
				"completed":  st.Completed,
				"incomplete": st.Incomplete(),
				"starred":    st.Starred,
			}, func(p *render.Printer) error {
				return p.Stats(name, st)
			}))
		},
	}
}

func newExportCmd(app *App) *cobra.Command {
	var (
		asXML   bool
		single  bool
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "export <file> [node]",
		Short: "Export the outline (or one leg) as JSON or OPML",
		Long: strings.TrimSpace(`
Export writes JSON by default: an array of top-level items, or a single
object when a node is given. With --xml the output is OPML; a node export
is a standalone document holding that leg (or, with --single, just that
item).
`),
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openSession(cmd, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			id := s.Tree().Root()
			if len(args) == 2 {
				if id, err = s.Resolve(args[1]); err != nil {
					return writeErr(cmd, err)
				}
			}

			var buf bytes.Buffer
			switch {
			case asXML && id == s.Tree().Root():
				b, err := s.Document().Marshal()
				if err != nil {
					return writeErr(cmd, err)
				}
				buf.Write(b)
			case asXML:
				x, err := s.Document().RenderSubtreeXML(id, !single)
				if err != nil {
					return writeErr(cmd, err)
				}
				buf.WriteString(x)
			default:
				if err := export.WriteJSON(&buf, s.Tree(), id, app.PrettyJSON); err != nil {
					return writeErr(cmd, err)
				}
			}
			if err := writeExport(cmd.OutOrStdout(), outPath, buf.Bytes()); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asXML, "xml", false, "Export OPML instead of JSON")
	cmd.Flags().BoolVar(&single, "single", false, "With --xml and a node: export the item without its children")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Write to this file instead of stdout")
	return cmd
}

func writeExport(w io.Writer, path string, b []byte) error {
	if path == "" || path == "-" {
		_, err := w.Write(b)
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := store.AtomicWriteFile(dir, ".export.*.tmp", path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// resolveOrRoot resolves ref, treating "" as the body root.
func resolveOrRoot(s *session.Session, ref string) (outline.ID, error) {
	if strings.TrimSpace(ref) == "" {
		return s.Tree().Root(), nil
	}
	id, err := s.Resolve(ref)
	if err != nil {
		return "", err
	}
	return id, nil
}
