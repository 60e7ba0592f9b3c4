package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"outliner-cli/internal/clipboard"
	"outliner-cli/internal/config"
	"outliner-cli/internal/format"
	"outliner-cli/internal/logging"
	"outliner-cli/internal/render"
	"outliner-cli/internal/session"
	"outliner-cli/internal/store"
)

// formatText is the default, human-readable output.
const formatText = "text"

type App struct {
	ConfigDir  string
	Format     string
	PrettyJSON bool
	NoColor    bool

	cfg     config.Config
	log     *slog.Logger
	closers []io.Closer
	board   clipboard.Board
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "outliner",
		Short:        "Edit OPML outlines from the command line",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start a document and add to it
  outliner new plans.opml
  outliner add plans.opml "Groceries"
  outliner add plans.opml "Milk" --at 1 --position child

  # Look at it
  outliner show plans.opml --all
  outliner search plans.opml milk
  outliner list plans.opml starred

  # Interactive shell over one document
  outliner shell plans.opml
`),
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.init(cmd)
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		app.close()
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.ConfigDir, "config-dir", envOr("OUTLINER_CONFIG_DIR", ""), "Config directory (default ~/.outliner)")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("OUTLINER_FORMAT", formatText), "Output format (text|json|edn|yaml)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON/EDN output")
	cmd.PersistentFlags().BoolVar(&app.NoColor, "no-color", false, "Disable colored output")

	cmd.AddCommand(newNewCmd(app))
	cmd.AddCommand(newShowCmd(app))
	cmd.AddCommand(newNodeCmd(app))
	cmd.AddCommand(newAddCmd(app))
	cmd.AddCommand(newEditCmd(app))
	cmd.AddCommand(newCompleteCmd(app))
	cmd.AddCommand(newStarCmd(app))
	cmd.AddCommand(newDeleteCmd(app))
	cmd.AddCommand(newMoveCmd(app))
	cmd.AddCommand(newIndentCmd(app))
	cmd.AddCommand(newPromoteCmd(app))
	cmd.AddCommand(newDuplicateCmd(app))
	cmd.AddCommand(newSortCmd(app))
	cmd.AddCommand(newExpandCmd(app))
	cmd.AddCommand(newCollapseCmd(app))
	cmd.AddCommand(newSearchCmd(app))
	cmd.AddCommand(newListCmd(app))
	cmd.AddCommand(newStatsCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newCopyCmd(app))
	cmd.AddCommand(newCutCmd(app))
	cmd.AddCommand(newPasteCmd(app))
	cmd.AddCommand(newHistoryCmd(app))
	cmd.AddCommand(newPresetsCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newWatchCmd(app))
	cmd.AddCommand(newShellCmd(app))

	return cmd
}

// init loads the configuration and builds the logger. It runs before every
// command.
func (app *App) init(cmd *cobra.Command) error {
	if app.Format != formatText && !isMachineFormat(app.Format) {
		return writeErr(cmd, fmt.Errorf("unknown format: %s (expected text|%s)", app.Format, strings.Join(format.Formats, "|")))
	}
	dir := app.ConfigDir
	if dir == "" {
		d, err := config.Dir()
		if err != nil {
			return writeErr(cmd, err)
		}
		dir = d
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return writeErr(cmd, err)
	}
	app.cfg = cfg

	l, closer, err := logging.Open(cfg.LogLevel, cfg.LogFile, cmd.ErrOrStderr())
	if err != nil {
		return writeErr(cmd, err)
	}
	app.log = l
	app.closers = append(app.closers, closer)
	return nil
}

func (app *App) close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		_ = app.closers[i].Close()
	}
	app.closers = nil
}

func isMachineFormat(f string) bool {
	for _, x := range format.Formats {
		if f == x {
			return true
		}
	}
	return f == "yml"
}

// clipboardBoard returns the configured board. The system clipboard is used
// only where the platform supports it.
func (app *App) clipboardBoard() clipboard.Board {
	if app.board != nil {
		return app.board
	}
	if app.cfg.Clipboard == config.ClipboardSystem && clipboard.Available() {
		app.board = clipboard.System{}
	} else {
		app.board = clipboard.File{Path: app.cfg.ClipboardPath()}
	}
	return app.board
}

// history opens the save-history database when it is enabled. It returns nil
// (and logs) when it cannot be opened, so the edit itself still goes through.
func (app *App) history(ctx context.Context) *store.History {
	if !app.cfg.History.Enabled || app.cfg.Dir() == "" {
		return nil
	}
	h, err := store.OpenHistory(ctx, app.cfg.HistoryPath())
	if err != nil {
		app.log.Warn("history unavailable", "path", app.cfg.HistoryPath(), "err", err)
		return nil
	}
	app.closers = append(app.closers, h)
	return h
}

func (app *App) sessionOptions(ctx context.Context, withHistory bool) session.Options {
	opts := session.Options{
		Board:       app.clipboardBoard(),
		HistoryKeep: app.cfg.History.Keep,
		Logger:      app.log,
	}
	if withHistory {
		opts.History = app.history(ctx)
	}
	return opts
}

// openSession loads path for a read-only command.
func (app *App) openSession(cmd *cobra.Command, path string) (*session.Session, error) {
	return session.Open(path, app.sessionOptions(cmd.Context(), false))
}

// edit loads path, runs fn and saves the document afterwards.
func (app *App) edit(cmd *cobra.Command, path string, fn func(s *session.Session) (any, error)) error {
	ctx := cmd.Context()
	s, err := session.Open(path, app.sessionOptions(ctx, true))
	if err != nil {
		return writeErr(cmd, err)
	}
	v, err := fn(s)
	if err != nil {
		return writeErr(cmd, err)
	}
	if err := s.Save(ctx, ""); err != nil {
		return writeErr(cmd, err)
	}
	if v == nil {
		return nil
	}
	return app.writeOut(cmd, v)
}

func (app *App) printer(cmd *cobra.Command) *render.Printer {
	return render.New(cmd.OutOrStdout(), render.Options{
		Width:   app.cfg.Render.Width,
		NoColor: app.NoColor || !app.cfg.Render.Color,
	})
}

func (app *App) text() bool { return app.Format == formatText }

// writeOut writes v in the selected machine format. In text mode, values
// that know how to print themselves do so; anything else falls back to JSON.
func (app *App) writeOut(cmd *cobra.Command, v any) error {
	if app.text() {
		if h, ok := v.(humanOutput); ok {
			return h.print(app.printer(cmd))
		}
		return format.WriteJSON(cmd.OutOrStdout(), v, true)
	}
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

// humanOutput is implemented by command results with a text rendering.
type humanOutput interface {
	print(p *render.Printer) error
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}

// errUsage marks argument errors that cobra's Args validators cannot catch.
var errUsage = errors.New("usage")

func usageErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}
