// Package session owns one open outline document: the tree, the current
// selection and the state that spans several edits (last sort, clipboard,
// save history). A Session is not safe for concurrent use; background work
// gets a cloned tree instead (see internal/worker).
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"outliner-cli/internal/clipboard"
	"outliner-cli/internal/logging"
	"outliner-cli/internal/opml"
	"outliner-cli/internal/outline"
	"outliner-cli/internal/store"
)

// ErrNoSelection is returned by operations that act on the selection when
// nothing is selected.
var ErrNoSelection = errors.New("no item selected")

type Options struct {
	// Board receives copied legs. Nil means an in-process board.
	Board clipboard.Board
	// History, when set, gets a snapshot after each successful save.
	History     *store.History
	HistoryKeep int
	Logger      *slog.Logger
	TreeOptions []outline.Option
}

type sortState struct {
	parent    outline.ID
	key       outline.SortKey
	ascending bool
}

type Session struct {
	doc      *opml.Document
	selected outline.ID
	lastSort *sortState
	pending  string // save target of a document not yet written

	board   clipboard.Board
	history *store.History
	keep    int
	log     *slog.Logger
	treeOpt []outline.Option
}

// New starts a session on a fresh, unsaved document whose default item is
// selected.
func New(opts Options) *Session {
	s := newSession(opts)
	s.doc = opml.New(opts.TreeOptions...)
	s.selectFirst()
	return s
}

// Open loads path into a new session. A failed load returns the LoadError and
// no session.
func Open(path string, opts Options) (*Session, error) {
	doc, err := opml.Load(path, opts.TreeOptions...)
	if err != nil {
		return nil, err
	}
	s := newSession(opts)
	s.doc = doc
	s.selectFirst()
	s.log.Debug("document opened", "path", path, "nodes", doc.Tree.Len())
	return s, nil
}

// OpenOrNew opens path, or starts a new document that will be saved there
// when the file does not exist yet.
func OpenOrNew(path string, opts Options) (*Session, bool, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		s := New(opts)
		s.pending = path
		return s, true, nil
	}
	s, err := Open(path, opts)
	return s, false, err
}

func newSession(opts Options) *Session {
	board := opts.Board
	if board == nil {
		board = &clipboard.Memory{}
	}
	keep := opts.HistoryKeep
	if keep <= 0 {
		keep = 20
	}
	return &Session{
		board:   board,
		history: opts.History,
		keep:    keep,
		log:     logging.OrDiscard(opts.Logger),
		treeOpt: opts.TreeOptions,
	}
}

func (s *Session) Document() *opml.Document { return s.doc }
func (s *Session) Tree() *outline.Tree      { return s.doc.Tree }

// Path is where Save writes when called with an empty path.
func (s *Session) Path() string {
	if p := s.doc.Path(); p != "" {
		return p
	}
	return s.pending
}

// Name is the document's file name without extension, including one that has
// not been written yet.
func (s *Session) Name() string {
	if s.doc.Path() == "" && s.pending != "" {
		base := filepath.Base(s.pending)
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	return s.doc.Name()
}

func (s *Session) Dirty() bool { return s.doc.HasUnsavedChanges() }

// Save writes the document (to path, or the remembered path) and records a
// history snapshot. History failures are logged, never returned: the file on
// disk is already correct at that point.
func (s *Session) Save(ctx context.Context, path string) error {
	if path == "" {
		path = s.Path()
	}
	if err := s.doc.Save(path); err != nil {
		return err
	}
	s.pending = ""
	s.log.Info("document saved", "path", s.doc.Path(), "nodes", s.doc.Tree.Len())
	s.recordHistory(ctx)
	return nil
}

func (s *Session) recordHistory(ctx context.Context) {
	if s.history == nil {
		return
	}
	b, err := os.ReadFile(s.doc.Path())
	if err != nil {
		s.log.Warn("history snapshot skipped", "path", s.doc.Path(), "err", err)
		return
	}
	id, err := s.history.Record(ctx, s.doc.Path(), s.doc.Header.LastSaved, s.doc.Tree.Len(), string(b))
	if err != nil {
		s.log.Warn("history snapshot failed", "path", s.doc.Path(), "err", err)
		return
	}
	pruned, err := s.history.Prune(ctx, s.doc.Path(), s.keep)
	if err != nil {
		s.log.Warn("history prune failed", "path", s.doc.Path(), "err", err)
		return
	}
	s.log.Debug("history snapshot recorded", "id", id, "pruned", pruned)
}

// Selected returns the selected node id, or "" when nothing is selected.
func (s *Session) Selected() outline.ID {
	if s.selected != "" && !s.doc.Tree.Has(s.selected) {
		s.selected = ""
	}
	return s.selected
}

func (s *Session) ClearSelection() { s.selected = "" }

// Select resolves ref (id, id prefix or dotted path) and selects it.
func (s *Session) Select(ref string) (outline.ID, error) {
	id, err := s.resolve(ref)
	if err != nil {
		return "", err
	}
	s.selected = id
	return id, nil
}

// Resolve looks up ref without changing the selection. An empty ref means the
// selection.
func (s *Session) Resolve(ref string) (outline.ID, error) { return s.resolve(ref) }

func (s *Session) resolve(ref string) (outline.ID, error) {
	if strings.TrimSpace(ref) == "" {
		if id := s.Selected(); id != "" {
			return id, nil
		}
		return "", ErrNoSelection
	}
	return s.doc.Tree.Resolve(ref)
}

func (s *Session) selectFirst() {
	s.selected = ""
	if kids := s.doc.Tree.Children(s.doc.Tree.Root()); len(kids) > 0 {
		s.selected = kids[0]
	}
}

func (s *Session) node(id outline.ID) (*outline.Node, error) {
	n, ok := s.doc.Tree.Find(id)
	if !ok {
		return nil, outline.NotFoundError{ID: id}
	}
	return n, nil
}

// Node resolves ref and returns the node.
func (s *Session) Node(ref string) (*outline.Node, error) {
	id, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	return s.node(id)
}

func (s *Session) String() string {
	return fmt.Sprintf("%s (%d items)", s.doc.Name(), s.doc.Tree.Len())
}

// Restore replaces the document with a history snapshot and saves it to the
// current path. The restore itself becomes the newest snapshot.
func (s *Session) Restore(ctx context.Context, snap store.Snapshot) error {
	doc, err := opml.Parse([]byte(snap.XML), s.treeOpt...)
	if err != nil {
		return fmt.Errorf("snapshot %d: %w", snap.ID, err)
	}
	path := s.Path()
	s.doc = doc
	s.lastSort = nil
	s.selected = ""
	s.selectFirst()
	return s.Save(ctx, path)
}
