package main

import (
	"reflect"
	"testing"
)

func TestRewriteDirectFileArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no args",
			in:   []string{"outliner"},
			want: []string{"outliner"},
		},
		{
			name: "file first token",
			in:   []string{"outliner", "plans.opml"},
			want: []string{"outliner", "show", "plans.opml"},
		},
		{
			name: "file with extra args",
			in:   []string{"outliner", "plans.opml", "--all"},
			want: []string{"outliner", "show", "plans.opml", "--all"},
		},
		{
			name: "file after value flag",
			in:   []string{"outliner", "--format", "json", "plans.OPML"},
			want: []string{"outliner", "--format", "json", "show", "plans.OPML"},
		},
		{
			name: "file after equals flag",
			in:   []string{"outliner", "--config-dir=./cfg", "plans.opml"},
			want: []string{"outliner", "--config-dir=./cfg", "show", "plans.opml"},
		},
		{
			name: "file after bool flag",
			in:   []string{"outliner", "--no-color", "plans.opml"},
			want: []string{"outliner", "--no-color", "show", "plans.opml"},
		},
		{
			name: "file after double dash",
			in:   []string{"outliner", "--", "plans.opml"},
			want: []string{"outliner", "--", "show", "plans.opml"},
		},
		{
			name: "subcommand not rewritten",
			in:   []string{"outliner", "stats", "plans.opml"},
			want: []string{"outliner", "stats", "plans.opml"},
		},
		{
			name: "unknown command not rewritten",
			in:   []string{"outliner", "wat"},
			want: []string{"outliner", "wat"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := rewriteDirectFileArgs(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("rewriteDirectFileArgs(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
