package cli

import (
	"github.com/spf13/cobra"

	"outliner-cli/internal/render"
	"outliner-cli/internal/session"
)

func newCopyCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "copy <file> <node>",
		Short: "Copy an item and its children to the clipboard",
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
			p, err := s.Copy(string(n.ID))
			if err != nil {
				return writeErr(cmd, err)
			}
			return app.writeOut(cmd, out(p, func(pr *render.Printer) error {
				return pr.Message("copied %s %s", s.Tree().Path(n.ID), n.Title)
			}))
		},
	}
}

func newCutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "cut <file> <node>",
		Short: "Copy an item to the clipboard and delete it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.edit(cmd, args[0], func(s *session.Session) (any, error) {
				n, err := s.Node(args[1])
				if err != nil {
					return nil, err
				}
				title := n.Title
				path := s.Tree().Path(n.ID)
				if _, err := s.Cut(string(n.ID)); err != nil {
					return nil, err
				}
				return out(map[string]any{"id": string(n.ID), "title": title}, func(p *render.Printer) error {
					return p.Message("cut %s %s", path, title)
				}), nil
			})
		},
	}
}

func newPasteCmd(app *App) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "paste <file>",
		Short: "Paste the clipboard leg",
		Long:  "Paste inserts the copied leg below --at, or as the last top-level item.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.edit(cmd, args[0], func(s *session.Session) (any, error) {
				s.ClearSelection()
				if at != "" {
					if _, err := s.Select(at); err != nil {
						return nil, err
					}
				}
				id, err := s.Paste()
				if err != nil {
					return nil, err
				}
				n, _ := s.Tree().Node(id)
				return nodeResult(s.Tree(), n, "pasted"), nil
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "Paste below this item")
	return cmd
}
