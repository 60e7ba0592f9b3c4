package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrSnapshotNotFound is returned by Get for an unknown snapshot id.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is one saved copy of a document.
type Snapshot struct {
	ID        int64     `json:"id"`
	DocPath   string    `json:"docPath"`
	SavedAt   time.Time `json:"savedAt"`
	NodeCount int       `json:"nodeCount"`
	XML       string    `json:"xml,omitempty"`
}

// History keeps a snapshot of a document every time it is saved.
type History struct {
	db *sql.DB
}

// OpenHistory opens (creating if needed) the history database at path.
func OpenHistory(ctx context.Context, path string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrateHistory(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &History{db: db}, nil
}

func migrateHistory(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			doc_path TEXT NOT NULL,
			saved_at_unixms INTEGER NOT NULL,
			node_count INTEGER NOT NULL,
			xml TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_doc ON snapshots(doc_path, saved_at_unixms);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return fmt.Errorf("migrate history: %w", err)
		}
	}
	return nil
}

func (h *History) Close() error {
	if h == nil || h.db == nil {
		return nil
	}
	return h.db.Close()
}

// Record stores a snapshot and returns its id. The path is stored absolute so
// the same file is recognised from any working directory.
func (h *History) Record(ctx context.Context, docPath string, savedAt time.Time, nodeCount int, xml string) (int64, error) {
	docPath = absPath(docPath)
	res, err := h.db.ExecContext(ctx,
		`INSERT INTO snapshots (doc_path, saved_at_unixms, node_count, xml) VALUES (?, ?, ?, ?)`,
		docPath, savedAt.UnixMilli(), nodeCount, xml,
	)
	if err != nil {
		return 0, fmt.Errorf("record snapshot: %w", err)
	}
	return res.LastInsertId()
}

// List returns the snapshots of docPath, newest first, without their XML.
// limit <= 0 means no limit.
func (h *History) List(ctx context.Context, docPath string, limit int) ([]Snapshot, error) {
	q := `SELECT id, doc_path, saved_at_unixms, node_count FROM snapshots WHERE doc_path = ? ORDER BY saved_at_unixms DESC, id DESC`
	args := []any{absPath(docPath)}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := h.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var (
			s  Snapshot
			ms int64
		)
		if err := rows.Scan(&s.ID, &s.DocPath, &ms, &s.NodeCount); err != nil {
			return nil, err
		}
		s.SavedAt = time.UnixMilli(ms).UTC()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns one snapshot including its XML.
func (h *History) Get(ctx context.Context, id int64) (Snapshot, error) {
	var (
		s  Snapshot
		ms int64
	)
	err := h.db.QueryRowContext(ctx,
		`SELECT id, doc_path, saved_at_unixms, node_count, xml FROM snapshots WHERE id = ?`, id,
	).Scan(&s.ID, &s.DocPath, &ms, &s.NodeCount, &s.XML)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("%w: %d", ErrSnapshotNotFound, id)
	}
	if err != nil {
		return Snapshot{}, err
	}
	s.SavedAt = time.UnixMilli(ms).UTC()
	return s, nil
}

// Prune keeps the newest keep snapshots of docPath and deletes the rest. It
// returns the number of rows removed.
func (h *History) Prune(ctx context.Context, docPath string, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	docPath = absPath(docPath)
	res, err := h.db.ExecContext(ctx, `
		DELETE FROM snapshots
		WHERE doc_path = ? AND id NOT IN (
			SELECT id FROM snapshots WHERE doc_path = ?
			ORDER BY saved_at_unixms DESC, id DESC
			LIMIT ?
		)`, docPath, docPath, keep)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return res.RowsAffected()
}

func absPath(p string) string {
	if p == "" {
		return p
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
