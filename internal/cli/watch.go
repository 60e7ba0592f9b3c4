package cli

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"outliner-cli/internal/outline"
	"outliner-cli/internal/render"
	"outliner-cli/internal/worker"
)

func newWatchCmd(app *App) *cobra.Command {
	var (
		ff       filterFlags
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch <file> [text]",
		Short: "Reprint stats and matches whenever the file changes",
		Long: `Watch prints item counts and the items matching the search options, then
does so again every time the file is saved by anything. Stop it with Ctrl-C.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := ""
			if len(args) == 2 {
				text = args[1]
			}
			opts, err := ff.options(app, text)
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			refresher := worker.NewRefresher(app.log, nil)
			refresh := func() {
				if err := app.refreshOnce(ctx, cmd, refresher, args[0], opts); err != nil {
					app.log.Warn("refresh failed", "path", args[0], "err", err)
					_ = writeErr(cmd, err)
				}
			}
			refresh()
			err = worker.Watch(ctx, args[0], debounce, app.log, refresh)
			refresher.Wait()
			if err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}
	ff.register(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", worker.DefaultDebounce, "Quiet period before reloading")
	return cmd
}

func (app *App) refreshOnce(ctx context.Context, cmd *cobra.Command, r *worker.Refresher, path string, opts outline.FilterOptions) error {
	s, err := app.openSession(cmd, path)
	if err != nil {
		return err
	}
	gen := r.Submit(ctx, s.Tree(), opts)
	r.Wait()
	res, ok := r.Latest()
	if !ok || res.Generation != gen {
		return nil
	}
	matches, err := res.Apply(s.Tree())
	if err != nil {
		return err
	}
	name := s.Document().Name()
	return app.writeOut(cmd, out(map[string]any{
		"path":      s.Path(),
		"nodes":     res.Stats.Nodes,
		"completed": res.Stats.Completed,
		"starred":   res.Stats.Starred,
		"matches":   viewNodes(s.Tree(), matches),
	}, func(p *render.Printer) error {
		if err := p.Stats(name, res.Stats); err != nil {
			return err
		}
		return p.Matches(s.Tree(), matches)
	}))
}
