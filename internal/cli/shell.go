package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"outliner-cli/internal/outline"
	"outliner-cli/internal/render"
	"outliner-cli/internal/session"
	"outliner-cli/internal/worker"
)

const shellHistoryFile = "shell_history"

var errUnsaved = errors.New("unsaved changes (save first, or quit! to discard them)")

func newShellCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "shell <file>",
		Short: "Edit one document interactively",
		Long: strings.TrimSpace(`
Shell opens a document (creating it on the first save when it does not
exist) and reads commands line by line. Most commands act on the selected
item unless given a node. Type "help" for the command list.
`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, created, err := session.OpenOrNew(args[0], app.sessionOptions(ctx, true))
			if err != nil {
				return writeErr(cmd, err)
			}
			sh := newShell(ctx, app, s, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if created {
				_ = sh.p.Message("new document, will be saved to %s", s.Path())
			}

			cfg := &readline.Config{
				Prompt:          sh.prompt(),
				AutoComplete:    sh.completer(),
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
				Stdin:           io.NopCloser(cmd.InOrStdin()),
				Stdout:          cmd.OutOrStdout(),
				Stderr:          cmd.ErrOrStderr(),
			}
			if dir := app.cfg.Dir(); dir != "" {
				cfg.HistoryFile = filepath.Join(dir, shellHistoryFile)
			}
			rl, err := readline.NewEx(cfg)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer rl.Close()
			return sh.loop(rl)
		},
	}
}

// lineReader is the part of *readline.Instance the loop uses.
type lineReader interface {
	Readline() (string, error)
	SetPrompt(string)
}

type shell struct {
	ctx       context.Context
	app       *App
	s         *session.Session
	p         *render.Printer
	errw      io.Writer
	refresher *worker.Refresher
	quit      bool
}

func newShell(ctx context.Context, app *App, s *session.Session, w, errw io.Writer) *shell {
	return &shell{
		ctx:  ctx,
		app:  app,
		s:    s,
		errw: errw,
		p: render.New(w, render.Options{
			Width:   app.cfg.Render.Width,
			NoColor: app.NoColor || !app.cfg.Render.Color,
		}),
		refresher: worker.NewRefresher(app.log, nil),
	}
}

func (sh *shell) prompt() string {
	mark := ""
	if sh.s.Dirty() {
		mark = "*"
	}
	return fmt.Sprintf("%s%s> ", sh.s.Name(), mark)
}

func (sh *shell) loop(rl lineReader) error {
	defer sh.refresher.Wait()
	for !sh.quit {
		rl.SetPrompt(sh.prompt())
		line, err := rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			continue
		case errors.Is(err, io.EOF):
			if sh.s.Dirty() {
				fmt.Fprintln(sh.errw, "unsaved changes discarded")
			}
			return nil
		case err != nil:
			return err
		}
		if err := sh.exec(line); err != nil {
			fmt.Fprintf(sh.errw, "error: %v\n", err)
		}
	}
	return nil
}

type shellCmd struct {
	names []string
	usage string
	help  string
	run   func(sh *shell, args []string) error
}

var shellCmds []shellCmd

func init() {
	shellCmds = []shellCmd{
		{names: []string{"help", "?"}, help: "List commands", run: (*shell).help},
		{names: []string{"show", "ls"}, usage: "[-a] [node]", help: "Print the outline", run: (*shell).show},
		{names: []string{"info"}, usage: "[node]", help: "Show one item in detail", run: (*shell).info},
		{names: []string{"select", "sel"}, usage: "<node>", help: "Select an item", run: (*shell).sel},
		{names: []string{"add"}, usage: "<title>", help: "Add an item below the selection", run: addAt(outline.Below)},
		{names: []string{"above"}, usage: "<title>", help: "Add an item above the selection", run: addAt(outline.Above)},
		{names: []string{"child"}, usage: "<title>", help: "Add the selection's last child", run: addAt(outline.Child)},
		{names: []string{"title"}, usage: "<text>", help: "Retitle the selection", run: (*shell).title},
		{names: []string{"notes"}, usage: "[text]", help: "Replace the selection's notes (none clears)", run: (*shell).notes},
		{names: []string{"complete", "done"}, usage: "[node]", help: "Mark completed", run: setFlag(func(e *session.Edit, v *bool) { e.Completed = v }, true)},
		{names: []string{"uncomplete"}, usage: "[node]", help: "Mark not completed", run: setFlag(func(e *session.Edit, v *bool) { e.Completed = v }, false)},
		{names: []string{"star"}, usage: "[node]", help: "Star", run: setFlag(func(e *session.Edit, v *bool) { e.Starred = v }, true)},
		{names: []string{"unstar"}, usage: "[node]", help: "Remove the star", run: setFlag(func(e *session.Edit, v *bool) { e.Starred = v }, false)},
		{names: []string{"delete", "del", "rm"}, usage: "[node]", help: "Delete an item and its children", run: (*shell).del},
		{names: []string{"move", "mv"}, usage: "<node> <target> [above|below|child]", help: "Move an item", run: (*shell).move},
		{names: []string{"indent"}, usage: "[node]", help: "Make an item its previous sibling's last child", run: (*shell).indent},
		{names: []string{"promote", "outdent"}, usage: "[node]", help: "Move an item up one level", run: (*shell).promote},
		{names: []string{"dup"}, usage: "[node]", help: "Duplicate an item (no children)", run: (*shell).dup},
		{names: []string{"dupleg"}, usage: "[node]", help: "Duplicate an item with its children", run: (*shell).dupleg},
		{names: []string{"copy", "cp"}, usage: "[node]", help: "Copy an item and its children", run: (*shell).copy},
		{names: []string{"cut"}, usage: "[node]", help: "Copy, then delete", run: (*shell).cut},
		{names: []string{"paste"}, help: "Paste below the selection", run: (*shell).paste},
		{names: []string{"sort"}, usage: "[name|starred|created|updated|completed]", help: "Sort the selection's level (again to reverse)", run: (*shell).sort},
		{names: []string{"expand"}, usage: "[-r] [node]", help: "Expand an item (-r: and everything below)", run: expansion(true)},
		{names: []string{"collapse"}, usage: "[-r] [node]", help: "Collapse an item (-r: and everything below)", run: expansion(false)},
		{names: []string{"reveal"}, usage: "<node>", help: "Expand an item's ancestors and select it", run: (*shell).reveal},
		{names: []string{"search", "find", "/"}, usage: "<text>", help: "Search titles and notes", run: (*shell).search},
		{names: []string{"list"}, usage: "<filter>", help: "List completed, incomplete, starred or recently-* items", run: (*shell).list},
		{names: []string{"stats"}, usage: "[node]", help: "Count items", run: (*shell).stats},
		{names: []string{"save", "w"}, usage: "[path]", help: "Save the document", run: (*shell).save},
		{names: []string{"quit", "exit", "q"}, help: "Leave (refuses with unsaved changes)", run: quitCmd(false)},
		{names: []string{"quit!", "q!"}, help: "Leave, discarding unsaved changes", run: quitCmd(true)},
	}
}

func lookupShellCmd(name string) (shellCmd, bool) {
	name = strings.ToLower(name)
	for _, c := range shellCmds {
		for _, n := range c.names {
			if n == name {
				return c, true
			}
		}
	}
	return shellCmd{}, false
}

func (sh *shell) completer() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(shellCmds))
	for _, c := range shellCmds {
		items = append(items, readline.PcItem(c.names[0]))
	}
	return readline.NewPrefixCompleter(items...)
}

func (sh *shell) exec(line string) error {
	words, err := splitWords(line)
	if err != nil {
		return err
	}
	if len(words) == 0 {
		return nil
	}
	c, ok := lookupShellCmd(words[0])
	if !ok {
		return fmt.Errorf("unknown command %q (try help)", words[0])
	}
	return c.run(sh, words[1:])
}

// arg returns args[0] or "" (the selection).
func arg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// recursiveFlag strips a leading -r from args.
func recursiveFlag(args []string) (bool, []string) {
	if len(args) > 0 && (args[0] == "-r" || args[0] == "--recursive") {
		return true, args[1:]
	}
	return false, args
}

func (sh *shell) announce(verb string, id outline.ID) error {
	tree := sh.s.Tree()
	n, ok := tree.Node(id)
	if !ok {
		return sh.p.Message("%s", verb)
	}
	return sh.p.Message("%s %s %s", verb, tree.Path(id), n.Title)
}

func (sh *shell) help(_ []string) error {
	for _, c := range shellCmds {
		usage := strings.TrimSpace(strings.Join(c.names, ", ") + " " + c.usage)
		if err := sh.p.Message("%-44s %s", usage, c.help); err != nil {
			return err
		}
	}
	return nil
}

func (sh *shell) show(args []string) error {
	all := false
	if len(args) > 0 && (args[0] == "-a" || args[0] == "--all") {
		all, args = true, args[1:]
	}
	root := sh.s.Tree().Root()
	if len(args) > 0 {
		id, err := sh.s.Resolve(args[0])
		if err != nil {
			return err
		}
		root = id
	}
	return sh.p.Tree(sh.s.Tree(), root, render.TreeOptions{All: all, Selected: sh.s.Selected()})
}

func (sh *shell) info(args []string) error {
	n, err := sh.s.Node(arg(args))
	if err != nil {
		return err
	}
	return sh.p.Node(sh.s.Tree(), n)
}

func (sh *shell) sel(args []string) error {
	if len(args) != 1 {
		return usageErr("select <node>")
	}
	id, err := sh.s.Select(args[0])
	if err != nil {
		return err
	}
	return sh.announce("selected", id)
}

func addAt(pos outline.Position) func(*shell, []string) error {
	return func(sh *shell, args []string) error {
		id, err := sh.s.Add("", pos, strings.Join(args, " "))
		if err != nil {
			return err
		}
		return sh.announce("added", id)
	}
}

func (sh *shell) title(args []string) error {
	if len(args) == 0 {
		return usageErr("title <text>")
	}
	t := strings.Join(args, " ")
	res, err := sh.s.Edit("", session.Edit{Title: &t})
	if err != nil {
		return err
	}
	return sh.announce("retitled", res.Node.ID)
}

func (sh *shell) notes(args []string) error {
	text := strings.Join(args, " ")
	res, err := sh.s.Edit("", session.Edit{Notes: &text})
	if err != nil {
		return err
	}
	return sh.announce("notes set on", res.Node.ID)
}

func setFlag(set func(e *session.Edit, v *bool), value bool) func(*shell, []string) error {
	return func(sh *shell, args []string) error {
		var e session.Edit
		set(&e, &value)
		res, err := sh.s.Edit(arg(args), e)
		if err != nil {
			return err
		}
		if !res.Changed {
			return sh.announce("unchanged", res.Node.ID)
		}
		return sh.announce("updated", res.Node.ID)
	}
}

func (sh *shell) del(args []string) error {
	n, err := sh.s.Node(arg(args))
	if err != nil {
		return err
	}
	title := n.Title
	if _, err := sh.s.Delete(string(n.ID)); err != nil {
		return err
	}
	return sh.p.Message("deleted %s", title)
}

func (sh *shell) move(args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return usageErr("move <node> <target> [above|below|child]")
	}
	pos := outline.Below
	if len(args) == 3 {
		p, err := outline.ParsePosition(args[2])
		if err != nil {
			return err
		}
		pos = p
	}
	id, err := sh.s.Resolve(args[0])
	if err != nil {
		return err
	}
	if err := sh.s.Move(string(id), args[1], pos); err != nil {
		return err
	}
	return sh.announce("moved", id)
}

func (sh *shell) indent(args []string) error {
	id, err := sh.s.Resolve(arg(args))
	if err != nil {
		return err
	}
	if err := sh.s.Indent(string(id)); err != nil {
		return err
	}
	return sh.announce("indented", id)
}

func (sh *shell) promote(args []string) error {
	id, err := sh.s.Resolve(arg(args))
	if err != nil {
		return err
	}
	if err := sh.s.Promote(string(id)); err != nil {
		return err
	}
	return sh.announce("promoted", id)
}

func (sh *shell) dup(args []string) error {
	id, err := sh.s.Duplicate(arg(args))
	if err != nil {
		return err
	}
	return sh.announce("duplicated as", id)
}

func (sh *shell) dupleg(args []string) error {
	id, err := sh.s.DuplicateLeg(arg(args))
	if err != nil {
		return err
	}
	return sh.announce("duplicated as", id)
}

func (sh *shell) copy(args []string) error {
	id, err := sh.s.Resolve(arg(args))
	if err != nil {
		return err
	}
	if _, err := sh.s.Copy(string(id)); err != nil {
		return err
	}
	return sh.announce("copied", id)
}

func (sh *shell) cut(args []string) error {
	n, err := sh.s.Node(arg(args))
	if err != nil {
		return err
	}
	title := n.Title
	if _, err := sh.s.Cut(string(n.ID)); err != nil {
		return err
	}
	return sh.p.Message("cut %s", title)
}

func (sh *shell) paste(_ []string) error {
	id, err := sh.s.Paste()
	if err != nil {
		return err
	}
	return sh.announce("pasted", id)
}

func (sh *shell) sort(args []string) error {
	key := outline.SortByName
	if len(args) > 0 {
		k, err := outline.ParseSortKey(args[0])
		if err != nil {
			return err
		}
		key = k
	}
	asc, err := sh.s.SortLevel("", key)
	if err != nil {
		return err
	}
	dir := "descending"
	if asc {
		dir = "ascending"
	}
	return sh.p.Message("sorted by %s (%s)", key, dir)
}

func expansion(expanded bool) func(*shell, []string) error {
	verb := "collapsed"
	if expanded {
		verb = "expanded"
	}
	return func(sh *shell, args []string) error {
		recursive, args := recursiveFlag(args)
		ref := arg(args)
		var err error
		if expanded {
			err = sh.s.Expand(ref, recursive)
		} else {
			err = sh.s.Collapse(ref, recursive)
		}
		if err != nil {
			return err
		}
		if ref == "" && recursive {
			return sh.p.Message("%s everything", verb)
		}
		id, err := sh.s.Resolve(ref)
		if err != nil {
			return err
		}
		return sh.announce(verb, id)
	}
}

func (sh *shell) reveal(args []string) error {
	if len(args) != 1 {
		return usageErr("reveal <node>")
	}
	id, err := sh.s.Reveal(args[0])
	if err != nil {
		return err
	}
	return sh.announce("revealed", id)
}

func (sh *shell) search(args []string) error {
	if len(args) == 0 {
		return usageErr("search <text>")
	}
	opts := sh.app.cfg.FilterOptions()
	opts.Text = strings.Join(args, " ")
	return sh.runFilter(opts)
}

func (sh *shell) list(args []string) error {
	if len(args) != 1 {
		return usageErr("list <filter>")
	}
	t, err := outline.ParseFilterType(args[0])
	if err != nil {
		return err
	}
	opts := sh.app.cfg.FilterOptions()
	opts.Type = t
	return sh.runFilter(opts)
}

// runFilter computes matches on a snapshot and resolves them against the
// live tree.
func (sh *shell) runFilter(opts outline.FilterOptions) error {
	gen := sh.refresher.Submit(sh.ctx, sh.s.Tree(), opts)
	sh.refresher.Wait()
	res, ok := sh.refresher.Latest()
	if !ok || res.Generation != gen {
		return worker.ErrStale
	}
	matches, err := res.Apply(sh.s.Tree())
	if err != nil {
		return err
	}
	return sh.p.Matches(sh.s.Tree(), matches)
}

func (sh *shell) stats(args []string) error {
	ref := arg(args)
	st, err := sh.s.Stats(ref)
	if err != nil {
		return err
	}
	name := sh.s.Name()
	if ref != "" {
		n, err := sh.s.Node(ref)
		if err != nil {
			return err
		}
		name = n.Title
	}
	return sh.p.Stats(name, st)
}

func (sh *shell) save(args []string) error {
	if err := sh.s.Save(sh.ctx, arg(args)); err != nil {
		return err
	}
	return sh.p.Message("saved %s", sh.s.Path())
}

func quitCmd(force bool) func(*shell, []string) error {
	return func(sh *shell, _ []string) error {
		if sh.s.Dirty() && !force {
			return errUnsaved
		}
		sh.quit = true
		return nil
	}
}
