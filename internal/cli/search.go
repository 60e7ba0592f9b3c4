package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"outliner-cli/internal/config"
	"outliner-cli/internal/outline"
	"outliner-cli/internal/render"
	"outliner-cli/internal/session"
)

// filterFlags are shared by search, list and watch.
type filterFlags struct {
	scope  string
	filter string
	preset string
	days   int
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.scope, "scope", "", "Text scope (title|notes|title-and-notes; default from config)")
	cmd.Flags().StringVar(&f.filter, "filter", "", "Type filter (outline|completed|incomplete|starred|recently-added|recently-completed|recently-updated)")
	cmd.Flags().StringVar(&f.preset, "preset", "", "Start from a saved search preset")
	cmd.Flags().IntVar(&f.days, "days", 0, "Window for the recently-* filters (default from config)")
}

// options builds filter options: config defaults, then the preset, then the
// explicit flags, then text.
func (f *filterFlags) options(app *App, text string) (outline.FilterOptions, error) {
	opts := app.cfg.FilterOptions()
	if f.preset != "" {
		list, err := config.LoadPresets(app.cfg.PresetsPath())
		if err != nil {
			return opts, err
		}
		p, ok := config.FindPreset(list, f.preset)
		if !ok {
			return opts, usageErr("unknown preset %q (see `outliner presets`)", f.preset)
		}
		if opts, err = p.Options(opts); err != nil {
			return opts, err
		}
	}
	if f.scope != "" {
		s, err := outline.ParseScope(f.scope)
		if err != nil {
			return opts, err
		}
		opts.Scope = s
	}
	if f.filter != "" {
		t, err := outline.ParseFilterType(f.filter)
		if err != nil {
			return opts, err
		}
		opts.Type = t
	}
	if f.days > 0 {
		opts.Window = outline.RecentWindow(f.days)
	}
	if text != "" {
		opts.Text = text
	}
	return opts, nil
}

func newSearchCmd(app *App) *cobra.Command {
	var ff filterFlags
	var reveal bool
	cmd := &cobra.Command{
		Use:   "search <file> [text]",
		Short: "Find items by text and type",
		Long: strings.TrimSpace(`
Search matches text case-insensitively against titles and/or notes, and
combines it with a type filter. Results are listed in outline order.

With --reveal, collapsed ancestors of every match are expanded and the
file is saved, so the matches are visible the next time it is shown.
`),
		Example: strings.TrimSpace(`
  outliner search plans.opml milk
  outliner search plans.opml --filter starred
  outliner search plans.opml bank --scope notes --filter incomplete
  outliner search plans.opml --preset done-lately --days 2
`),
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := ""
			if len(args) == 2 {
				text = args[1]
			}
			return app.runSearch(cmd, args[0], text, &ff, reveal)
		},
	}
	ff.register(cmd)
	cmd.Flags().BoolVar(&reveal, "reveal", false, "Expand ancestors of matches and save")
	return cmd
}

func newListCmd(app *App) *cobra.Command {
	var ff filterFlags
	cmd := &cobra.Command{
		Use:   "list <file> <filter>",
		Short: "List items matching a type filter",
		Long:  "List items by type: completed, incomplete, starred, recently-added, recently-completed, recently-updated.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ff.filter = args[1]
			return app.runSearch(cmd, args[0], "", &ff, false)
		},
	}
	cmd.Flags().IntVar(&ff.days, "days", 0, "Window for the recently-* filters (default from config)")
	return cmd
}

func (app *App) runSearch(cmd *cobra.Command, path, text string, ff *filterFlags, reveal bool) error {
	opts, err := ff.options(app, text)
	if err != nil {
		return writeErr(cmd, err)
	}
	matched := func(s *session.Session, matches []*outline.Node) result {
		return out(viewNodes(s.Tree(), matches), func(p *render.Printer) error {
			return p.Matches(s.Tree(), matches)
		})
	}
	if !reveal {
		s, err := app.openSession(cmd, path)
		if err != nil {
			return writeErr(cmd, err)
		}
		return app.writeOut(cmd, matched(s, s.Search(opts)))
	}
	return app.edit(cmd, path, func(s *session.Session) (any, error) {
		matches := s.Search(opts)
		for _, n := range matches {
			if _, err := s.Reveal(string(n.ID)); err != nil {
				return nil, err
			}
		}
		return matched(s, matches), nil
	})
}

func newPresetsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List saved search presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := config.LoadPresets(app.cfg.PresetsPath())
			if err != nil {
				return writeErr(cmd, err)
			}
			return app.writeOut(cmd, out(list, func(p *render.Printer) error {
				for _, ps := range list {
					desc := ps.Description
					if ps.Builtin {
						desc += " (built-in)"
					}
					if err := p.Message("%-14s %s", ps.Name, strings.TrimSpace(desc)); err != nil {
						return err
					}
				}
				return nil
			}))
		},
	}
	cmd.AddCommand(newPresetSaveCmd(app))
	return cmd
}

func newPresetSaveCmd(app *App) *cobra.Command {
	var p config.Preset
	cmd := &cobra.Command{
		Use:   "save <name>",
		Short: "Save a search preset (replaces one with the same name)",
		Example: strings.TrimSpace(`
  outliner presets save errands --text shop --filter incomplete
  outliner presets save fresh --filter recently-added --days 1
`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p.Name = args[0]
			if err := config.SavePreset(app.cfg.PresetsPath(), p); err != nil {
				return writeErr(cmd, err)
			}
			return app.writeOut(cmd, out(p, func(pr *render.Printer) error {
				return pr.Message("saved preset %s", p.Name)
			}))
		},
	}
	cmd.Flags().StringVar(&p.Text, "text", "", "Search text")
	cmd.Flags().StringVar(&p.Scope, "scope", "", "Text scope")
	cmd.Flags().StringVar(&p.Type, "filter", "", "Type filter")
	cmd.Flags().IntVar(&p.RecentDays, "days", 0, "Window for the recently-* filters")
	cmd.Flags().StringVar(&p.Description, "description", "", "Shown by `outliner presets`")
	return cmd
}
