package outline

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// DefaultRecentDays is the window used by the recently-* filters when none is
// configured.
const DefaultRecentDays = 5

type FilterType int

const (
	FilterAll FilterType = iota
	FilterCompleted
	FilterIncomplete
	FilterStarred
	FilterRecentlyAdded
	FilterRecentlyCompleted
	FilterRecentlyUpdated
)

var filterTypeNames = map[FilterType]string{
	FilterAll:               "outline",
	FilterCompleted:         "completed",
	FilterIncomplete:        "incomplete",
	FilterStarred:           "starred",
	FilterRecentlyAdded:     "recently-added",
	FilterRecentlyCompleted: "recently-completed",
	FilterRecentlyUpdated:   "recently-updated",
}

func (f FilterType) String() string {
	if s, ok := filterTypeNames[f]; ok {
		return s
	}
	return fmt.Sprintf("FilterType(%d)", int(f))
}

func ParseFilterType(s string) (FilterType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "outline", "all":
		return FilterAll, nil
	case "completed", "done":
		return FilterCompleted, nil
	case "incomplete", "open":
		return FilterIncomplete, nil
	case "starred":
		return FilterStarred, nil
	case "recently-added", "recentlyadded", "added":
		return FilterRecentlyAdded, nil
	case "recently-completed", "recentlycompleted":
		return FilterRecentlyCompleted, nil
	case "recently-updated", "recentlyupdated", "updated":
		return FilterRecentlyUpdated, nil
	default:
		return 0, fmt.Errorf("invalid filter %q", s)
	}
}

func (f FilterType) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *FilterType) UnmarshalText(b []byte) error {
	v, err := ParseFilterType(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Scope selects which text fields a text filter looks at.
type Scope int

const (
	ScopeTitleAndNotes Scope = iota
	ScopeTitle
	ScopeNotes
)

func (s Scope) String() string {
	switch s {
	case ScopeTitle:
		return "title"
	case ScopeNotes:
		return "notes"
	default:
		return "title-and-notes"
	}
}

func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "title-and-notes", "both", "all":
		return ScopeTitleAndNotes, nil
	case "title", "title-only":
		return ScopeTitle, nil
	case "notes", "notes-only":
		return ScopeNotes, nil
	default:
		return 0, fmt.Errorf("invalid scope %q (expected title|notes|title-and-notes)", s)
	}
}

func (s Scope) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Scope) UnmarshalText(b []byte) error {
	v, err := ParseScope(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

type FilterOptions struct {
	// Text is matched case-insensitively as a substring. Empty means no text filter.
	Text  string
	Scope Scope
	Type  FilterType
	// Window bounds the recently-* filters. Zero means DefaultRecentDays.
	Window time.Duration
	// Now is the reference time for the recently-* filters. Zero means time.Now.
	Now time.Time
}

// RecentWindow converts a day count to a filter window.
func RecentWindow(days int) time.Duration {
	return time.Duration(days) * 24 * time.Hour
}

// Filter returns the nodes below root, in pre-order, that satisfy both the
// text and type filters.
func (t *Tree) Filter(root ID, opts FilterOptions) []*Node {
	m := newMatcher(opts)
	var out []*Node
	for n := range t.Walk(root) {
		if m.match(n) {
			out = append(out, n)
		}
	}
	return out
}

type matcher struct {
	opts   FilterOptions
	fold   cases.Caser
	needle string
}

func newMatcher(opts FilterOptions) *matcher {
	if opts.Window <= 0 {
		opts.Window = RecentWindow(DefaultRecentDays)
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	m := &matcher{opts: opts, fold: cases.Fold()}
	m.needle = m.fold.String(opts.Text)
	return m
}

func (m *matcher) match(n *Node) bool {
	return m.matchText(n) && m.matchType(n)
}

func (m *matcher) matchText(n *Node) bool {
	if m.needle == "" {
		return true
	}
	switch m.opts.Scope {
	case ScopeTitle:
		return m.contains(n.Title)
	case ScopeNotes:
		return m.contains(n.Notes)
	default:
		return m.contains(n.Title) || m.contains(n.Notes)
	}
}

func (m *matcher) contains(s string) bool {
	return strings.Contains(m.fold.String(s), m.needle)
}

func (m *matcher) matchType(n *Node) bool {
	switch m.opts.Type {
	case FilterCompleted:
		return n.Completed
	case FilterIncomplete:
		return !n.Completed
	case FilterStarred:
		return n.Starred
	case FilterRecentlyAdded:
		return m.recent(n.CreatedAt)
	case FilterRecentlyCompleted:
		return m.recent(n.CompletedAt)
	case FilterRecentlyUpdated:
		return m.recent(n.UpdatedAt)
	default:
		return true
	}
}

func (m *matcher) recent(ts time.Time) bool {
	if ts.IsZero() {
		return false
	}
	d := m.opts.Now.Sub(ts)
	if d < 0 {
		d = -d
	}
	return d < m.opts.Window
}
