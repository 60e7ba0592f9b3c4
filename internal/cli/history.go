package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"outliner-cli/internal/render"
	"outliner-cli/internal/session"
	"outliner-cli/internal/store"
)

func newHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Saved snapshots of a document",
		Long:  "Every save records a snapshot of the file (see history.keep in the config).",
	}
	cmd.AddCommand(newHistoryListCmd(app))
	cmd.AddCommand(newHistoryShowCmd(app))
	cmd.AddCommand(newHistoryRestoreCmd(app))
	return cmd
}

// historyStore opens the history database or explains why it is missing.
func (app *App) historyStore(cmd *cobra.Command) (*store.History, error) {
	h := app.history(cmd.Context())
	if h == nil {
		return nil, fmt.Errorf("history is disabled or unavailable (config dir %q)", app.cfg.Dir())
	}
	return h, nil
}

func newHistoryListCmd(app *App) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list <file>",
		Short: "List snapshots, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := app.historyStore(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			snaps, err := h.List(cmd.Context(), args[0], limit)
			if err != nil {
				return writeErr(cmd, err)
			}
			return app.writeOut(cmd, out(snaps, func(p *render.Printer) error {
				return p.History(snaps)
			}))
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum snapshots to list (0 for all)")
	return cmd
}

func parseSnapshotID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, usageErr("invalid snapshot id %q", s)
	}
	return id, nil
}

func newHistoryShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a snapshot's OPML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSnapshotID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			h, err := app.historyStore(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			snap, err := h.Get(cmd.Context(), id)
			if err != nil {
				return writeErr(cmd, err)
			}
			if app.text() {
				_, err := fmt.Fprint(cmd.OutOrStdout(), snap.XML)
				return err
			}
			return app.writeOut(cmd, out(snap, nil))
		},
	}
}

func newHistoryRestoreCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <file> <id>",
		Short: "Replace a document with one of its snapshots",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSnapshotID(args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			h, err := app.historyStore(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()
			snap, err := h.Get(ctx, id)
			if err != nil {
				return writeErr(cmd, err)
			}
			opts := app.sessionOptions(ctx, false)
			opts.History = h
			s, _, err := session.OpenOrNew(args[0], opts)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := s.Restore(ctx, snap); err != nil {
				return writeErr(cmd, err)
			}
			return app.writeOut(cmd, out(map[string]any{
				"path":     s.Path(),
				"snapshot": snap.ID,
				"nodes":    s.Tree().Len(),
			}, func(p *render.Printer) error {
				return p.Message("restored %s from snapshot %d", s.Path(), snap.ID)
			}))
		},
	}
}
