package outline

import (
	"testing"
	"time"
)

func TestFilter_RecentlyAdded(t *testing.T) {
	t.Parallel()

	tr, clk := newTestTree(t)
	now := clk.now()

	mk := func(title string, created time.Time) ID {
		n := NewNode(title, created)
		if err := tr.Attach(tr.Root(), n); err != nil {
			t.Fatalf("Attach error: %v", err)
		}
		return n.ID
	}
	mk("today", now)
	mk("yesterday", now.Add(-24*time.Hour))
	mk("last month", now.Add(-30*24*time.Hour))

	got := tr.Filter(tr.Root(), FilterOptions{Type: FilterRecentlyAdded, Window: RecentWindow(7), Now: now})
	var names []string
	for _, n := range got {
		names = append(names, n.Title)
	}
	if !equalStrings(names, []string{"today", "yesterday"}) {
		t.Fatalf("unexpected matches: %v", names)
	}
}

func TestFilter_RecentlyCompletedNeedsTimestamp(t *testing.T) {
	t.Parallel()

	tr, clk := newTestTree(t)
	a := add(t, tr, tr.Root(), "a")
	add(t, tr, tr.Root(), "b")
	tr.SetCompleted(a, true)

	got := tr.Filter(tr.Root(), FilterOptions{Type: FilterRecentlyCompleted, Now: clk.now()})
	if len(got) != 1 || got[0].ID != a {
		t.Fatalf("expected only the completed node; got %d", len(got))
	}
}

func TestFilter_TypesAndText(t *testing.T) {
	t.Parallel()

	tr, _ := newTestTree(t)
	groceries := add(t, tr, tr.Root(), "Groceries")
	milk := add(t, tr, groceries, "Milk")
	bread := add(t, tr, groceries, "Bread")
	add(t, tr, tr.Root(), "Work")
	tr.SetNotes(bread, "whole GROCERY list item")
	tr.SetCompleted(milk, true)
	tr.SetStarred(bread, true)

	cases := []struct {
		name string
		opts FilterOptions
		want []string
	}{
		{name: "all", opts: FilterOptions{}, want: []string{"Groceries", "Milk", "Bread", "Work"}},
		{name: "completed", opts: FilterOptions{Type: FilterCompleted}, want: []string{"Milk"}},
		{name: "incomplete", opts: FilterOptions{Type: FilterIncomplete}, want: []string{"Groceries", "Bread", "Work"}},
		{name: "starred", opts: FilterOptions{Type: FilterStarred}, want: []string{"Bread"}},
		{name: "text both", opts: FilterOptions{Text: "grocer"}, want: []string{"Groceries", "Bread"}},
		{name: "text title", opts: FilterOptions{Text: "GROCER", Scope: ScopeTitle}, want: []string{"Groceries"}},
		{name: "text notes", opts: FilterOptions{Text: "grocer", Scope: ScopeNotes}, want: []string{"Bread"}},
		{name: "text and type", opts: FilterOptions{Text: "grocer", Type: FilterStarred}, want: []string{"Bread"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got []string
			for _, n := range tr.Filter(tr.Root(), tc.opts) {
				got = append(got, n.Title)
			}
			if !equalStrings(got, tc.want) {
				t.Fatalf("got %v; want %v", got, tc.want)
			}
		})
	}
}

func TestParseFilterTypeAndScope(t *testing.T) {
	t.Parallel()

	for _, ft := range []FilterType{FilterAll, FilterCompleted, FilterIncomplete, FilterStarred, FilterRecentlyAdded, FilterRecentlyCompleted, FilterRecentlyUpdated} {
		got, err := ParseFilterType(ft.String())
		if err != nil || got != ft {
			t.Fatalf("ParseFilterType(%q) = %v, %v", ft.String(), got, err)
		}
	}
	for _, sc := range []Scope{ScopeTitleAndNotes, ScopeTitle, ScopeNotes} {
		got, err := ParseScope(sc.String())
		if err != nil || got != sc {
			t.Fatalf("ParseScope(%q) = %v, %v", sc.String(), got, err)
		}
	}
	if _, err := ParseFilterType("bogus"); err == nil {
		t.Fatalf("expected error")
	}
}
