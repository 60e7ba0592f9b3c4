package opml

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"
	"pgregory.net/rapid"

	"outliner-cli/internal/outline"
)

var testNow = time.Date(2024, 4, 9, 10, 30, 15, 500_000_000, time.UTC)

func clock() outline.Option {
	return outline.WithClock(func() time.Time { return testNow })
}

func firstNode(t *testing.T, doc *Document) *outline.Node {
	t.Helper()
	kids := doc.Tree.Children(doc.Tree.Root())
	if len(kids) == 0 {
		t.Fatalf("document has no items")
	}
	n, _ := doc.Tree.Node(kids[0])
	return n
}

const sample = `<?xml version="1.0" encoding="UTF-8"?>
<opml version="2.0" xmlns:x="urn:example">
  <head>
    <title>Plans</title>
    <expansionState>1,3</expansionState>
    <dateCreated>2024-01-02T03:04:05Z</dateCreated>
    <dateLastSaved>2024-02-03T04:05:06Z</dateLastSaved>
  </head>
  <body>
    <outline text="Groceries &amp; more" _note="line one&#xA;line two" _status="checked" _star="yes" _expanded="yes"
             _created="2024-01-02T03:04:05Z" _updated="not a date" x:color="red" vendor="acme">
      <outline text="Milk"/>
      <outline text="Bread"><extra>ignored</extra></outline>
    </outline>
    <outline text="Work"/>
  </body>
</opml>
`

func TestParse_Sample(t *testing.T) {
	is := is.New(t)

	doc, err := Parse([]byte(sample), clock())
	is.NoErr(err)

	is.Equal(doc.Header.Title, "Plans")
	is.Equal(doc.Header.ExpansionState, "1,3")
	is.True(doc.Header.Created.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))

	n := firstNode(t, doc)
	is.Equal(n.Title, "Groceries & more")
	is.Equal(n.Notes, "line one\nline two")
	is.True(n.Completed)
	is.True(n.Starred)
	is.True(n.Expanded)
	is.True(n.UpdatedAt.IsZero())   // unparsable date is unset
	is.True(n.CompletedAt.IsZero()) // absent date is unset
	is.Equal(n.Attrs.Keys(), []string{"_updated", "x:color", "vendor"})

	is.Equal(doc.Tree.Len(), 4)
	is.True(!doc.HasUnsavedChanges())
}

func TestMarshal_RoundTripsExtensionsAndFlags(t *testing.T) {
	is := is.New(t)

	doc, err := Parse([]byte(sample), clock())
	is.NoErr(err)

	b, err := doc.Marshal()
	is.NoErr(err)
	out := string(b)

	is.True(strings.HasPrefix(out, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<opml "))
	is.True(strings.Contains(out, `_updated="not a date"`))
	is.True(strings.Contains(out, `<opml version="2.0" xmlns:x="urn:example">`))
	is.True(strings.Contains(out, `_note="line one&#xA;line two"`))
	is.True(strings.Contains(out, `x:color="red"`))
	is.True(strings.Contains(out, `vendor="acme"`))
	is.True(strings.Contains(out, `text="Groceries &amp; more"`))
	is.True(!strings.Contains(out, "ignored"))
	is.True(!strings.Contains(out, "#NewLine#"))
	is.True(strings.Contains(out, "<dateLastSaved>2024-04-09T10:30:15Z</dateLastSaved>"))

	again, err := Parse(b, clock())
	is.NoErr(err)
	n := firstNode(t, again)
	is.Equal(n.Notes, "line one\nline two")
	is.Equal(n.Attrs.Keys(), []string{"_updated", "x:color", "vendor"})
	is.Equal(again.Tree.Len(), 4)
}

func TestMarshal_UnreadableDatesSurviveUntilSet(t *testing.T) {
	is := is.New(t)

	in := `<opml version="2.0"><body>` +
		`<outline text="a" _created="Mon, 01 Jan 2024 10:00:00 GMT" _completed="last week"/>` +
		`<outline text="b" _status="checked" _completed="yesterday"/>` +
		`</body></opml>`
	doc, err := Parse([]byte(in), clock())
	is.NoErr(err)
	kids := doc.Tree.Children(doc.Tree.Root())
	a, _ := doc.Tree.Node(kids[0])
	is.True(a.CreatedAt.IsZero())

	b, err := doc.Marshal()
	is.NoErr(err)
	out := string(b)
	is.True(strings.Contains(out, `_created="Mon, 01 Jan 2024 10:00:00 GMT"`))
	is.True(strings.Contains(out, `_completed="yesterday"`))
	// Without the completed flag the date has no meaning.
	is.True(!strings.Contains(out, "last week"))

	// Once the field holds a real date the unreadable one is replaced.
	doc.Tree.SetCompleted(kids[1], false)
	doc.Tree.SetCompleted(kids[1], true)
	b, err = doc.Marshal()
	is.NoErr(err)
	out = string(b)
	is.True(!strings.Contains(out, "yesterday"))
	is.True(strings.Contains(out, `_completed="2024-04-09T10:30:15Z"`))
}

func TestMarshal_ClearedFlagsAreNotReEmitted(t *testing.T) {
	is := is.New(t)

	doc, err := Parse([]byte(sample), clock())
	is.NoErr(err)
	n := firstNode(t, doc)
	n.Attrs.Set("_star", "yes") // stale copy smuggled into the bag
	doc.Tree.SetStarred(n.ID, false)
	doc.Tree.SetCompleted(n.ID, false)
	doc.Tree.SetExpansion(n.ID, false, false)

	b, err := doc.Marshal()
	is.NoErr(err)
	out := string(b)
	is.True(!strings.Contains(out, "_star="))
	is.True(!strings.Contains(out, "_status="))
	is.True(!strings.Contains(out, "_expanded="))
	is.True(!strings.Contains(out, "_completed="))
}

func TestMarshal_NotesNewlinesAndCarriageReturns(t *testing.T) {
	is := is.New(t)

	doc := New(clock())
	n := firstNode(t, doc)
	doc.Tree.SetNotes(n.ID, "a\r\nb <c> \"d\"")

	b, err := doc.Marshal()
	is.NoErr(err)
	is.True(strings.Contains(string(b), `_note="a&#xA;b &lt;c&gt; &#34;d&#34;"`))

	again, err := Parse(b)
	is.NoErr(err)
	is.Equal(firstNode(t, again).Notes, "a\nb <c> \"d\"")
}

func TestMarshal_PlaceholderInNotesComesBackAsNewline(t *testing.T) {
	is := is.New(t)

	doc := New(clock())
	n := firstNode(t, doc)
	doc.Tree.SetNotes(n.ID, "keep#NewLine#this")

	b, err := doc.Marshal()
	is.NoErr(err)
	again, err := Parse(b)
	is.NoErr(err)
	is.Equal(firstNode(t, again).Notes, "keep\nthis")
}

func TestMarshal_PlaceholderAppliesToEveryAttribute(t *testing.T) {
	is := is.New(t)

	in := `<opml version="2.0"><head><title>x#NewLine#y</title></head><body>` +
		`<outline text="use #NewLine# tag" vendor="a#NewLine#b"/></body></opml>`
	doc, err := Parse([]byte(in), clock())
	is.NoErr(err)
	b, err := doc.Marshal()
	is.NoErr(err)

	again, err := Parse(b)
	is.NoErr(err)
	n := firstNode(t, again)
	is.Equal(n.Title, "use \n tag")
	v, _ := n.Attrs.Get("vendor")
	is.Equal(v, "a\nb")
	is.Equal(again.Header.Title, "x\ny")
}

func TestNew_HasDefaultItem(t *testing.T) {
	is := is.New(t)

	doc := New(clock())
	is.Equal(doc.Tree.Len(), 1)
	is.Equal(firstNode(t, doc).Title, outline.DefaultTitle)
	is.Equal(doc.Header.Title, DefaultHeaderTitle)
	is.True(doc.Header.Created.Equal(testNow))
	is.True(doc.HasUnsavedChanges())
}

func TestParse_MissingBodyGetsDefaultItem(t *testing.T) {
	is := is.New(t)

	doc, err := Parse([]byte(`<opml><head><title>T</title></head></opml>`))
	is.NoErr(err)
	is.Equal(doc.Tree.Len(), 1)
	is.Equal(firstNode(t, doc).Title, outline.DefaultTitle)

	empty, err := Parse([]byte(`<opml><body/></opml>`))
	is.NoErr(err)
	is.Equal(empty.Tree.Len(), 0)
	is.Equal(empty.Header.Title, DefaultHeaderTitle)
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"empty":       ``,
		"not xml":     `hello`,
		"wrong root":  `<rss><body/></rss>`,
		"unbalanced":  `<opml><body><outline text="a"></body></opml>`,
		"unclosed":    `<opml><body>`,
		"two roots":   `<opml/><opml/>`,
		"bad charset": `<?xml version="1.0" encoding="x-not-real"?><opml/>`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			is := is.New(t)
			_, err := Parse([]byte(in))
			is.True(err != nil)
		})
	}
}

func TestParse_Latin1(t *testing.T) {
	is := is.New(t)

	in := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><opml><body><outline text=\"caf\xe9\"/></body></opml>")
	doc, err := Parse(in)
	is.NoErr(err)
	is.Equal(firstNode(t, doc).Title, "café")
}

func TestLoad_Errors(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.opml"))
	var le LoadError
	is.True(errors.As(err, &le))
	is.True(errors.Is(err, os.ErrNotExist))

	bad := filepath.Join(dir, "bad.opml")
	is.NoErr(os.WriteFile(bad, []byte("<opml><body>"), 0o644))
	_, err = Load(bad)
	is.True(errors.As(err, &le))
	is.Equal(le.Path, bad)
}

func TestSave_WritesAndClearsChanged(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()

	doc := New(clock())
	var se SaveError
	is.True(errors.As(doc.Save(""), &se)) // no path yet

	path := filepath.Join(dir, "nested", "plans.opml")
	is.NoErr(doc.Save(path))
	is.Equal(doc.Path(), path)
	is.Equal(doc.Name(), "plans")
	is.True(!doc.HasUnsavedChanges())
	is.True(doc.Header.LastSaved.Equal(testNow))

	n := firstNode(t, doc)
	doc.Tree.SetTitle(n.ID, "renamed")
	is.True(doc.HasUnsavedChanges())
	is.NoErr(doc.Save(""))

	loaded, err := Load(path)
	is.NoErr(err)
	is.Equal(firstNode(t, loaded).Title, "renamed")

	entries, err := os.ReadDir(filepath.Dir(path))
	is.NoErr(err)
	is.Equal(len(entries), 1) // no temp files left behind
}

func TestSave_UnwritableDestination(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	is.NoErr(os.WriteFile(blocker, nil, 0o644))

	doc := New(clock())
	err := doc.Save(filepath.Join(blocker, "x.opml"))
	var se SaveError
	is.True(errors.As(err, &se))
	is.True(doc.HasUnsavedChanges())
	is.Equal(doc.Path(), "")
}

func TestRenderSubtreeXML_AndParseFragment(t *testing.T) {
	is := is.New(t)

	doc, err := Parse([]byte(sample), clock())
	is.NoErr(err)
	top := firstNode(t, doc)

	withKids, err := doc.RenderSubtreeXML(top.ID, true)
	is.NoErr(err)
	tree, id, err := ParseFragment(withKids)
	is.NoErr(err)
	n, _ := tree.Node(id)
	is.Equal(n.Title, "Groceries & more")
	is.Equal(tree.CountDescendants(id), 2)
	is.True(n.ID != top.ID) // fragments always get fresh ids
	is.Equal(len(tree.Children(tree.Root())), 1)

	alone, err := doc.RenderSubtreeXML(top.ID, false)
	is.NoErr(err)
	tree, id, err = ParseFragment(alone)
	is.NoErr(err)
	is.Equal(tree.CountDescendants(id), 0)

	_, err = doc.RenderSubtreeXML("missing", true)
	is.True(errors.Is(err, outline.ErrNotFound))
}

func TestParseFragment_NothingToPaste(t *testing.T) {
	for _, in := range []string{"", "just some copied text", `<opml><body/></opml>`} {
		is := is.New(t)
		_, _, err := ParseFragment(in)
		is.True(errors.Is(err, ErrNothingToPaste))
	}
}

// quirk applies the document-wide newline placeholder substitution.
func quirk(s string) string {
	return strings.ReplaceAll(s, "#NewLine#", "\n")
}

func TestRoundTrip_Property(t *testing.T) {
	text := rapid.StringMatching(`[a-zA-Z0-9 <>&"'\n\t.#;é]{0,24}`)
	extKey := rapid.SampledFrom([]string{"vendor", "x:color", "data-id", "_stardate"})
	base := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

	rapid.Check(t, func(t *rapid.T) {
		doc := &Document{Tree: outline.NewTree()}
		ids := []outline.ID{doc.Tree.Root()}
		size := rapid.IntRange(1, 20).Draw(t, "size")
		for i := 0; i < size; i++ {
			n := &outline.Node{
				ID:        outline.NewID(),
				Title:     text.Draw(t, "title"),
				Notes:     text.Draw(t, "notes"),
				Completed: rapid.Bool().Draw(t, "completed"),
				Starred:   rapid.Bool().Draw(t, "starred"),
				Expanded:  rapid.Bool().Draw(t, "expanded"),
				CreatedAt: base.Add(time.Duration(rapid.IntRange(0, 1e6).Draw(t, "created")) * time.Millisecond),
				Attrs:     outline.NewAttrs(),
			}
			if n.Completed {
				n.CompletedAt = base.Add(time.Hour)
			}
			for j := rapid.IntRange(0, 2).Draw(t, "exts"); j > 0; j-- {
				n.Attrs.Set(extKey.Draw(t, "key"), text.Draw(t, "val"))
			}
			parent := ids[rapid.IntRange(0, len(ids)-1).Draw(t, "parent")]
			if err := doc.Tree.Attach(parent, n); err != nil {
				t.Fatalf("Attach: %v", err)
			}
			ids = append(ids, n.ID)
		}

		b, err := doc.Marshal()
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		got, err := Parse(b)
		if err != nil {
			t.Fatalf("Parse: %v\n%s", err, b)
		}

		want := doc.Tree.Flatten(doc.Tree.Root())
		have := got.Tree.Flatten(got.Tree.Root())
		if len(want) != len(have) {
			t.Fatalf("node count %d != %d", len(have), len(want))
		}
		for i := range want {
			a, _ := doc.Tree.Node(want[i])
			b, _ := got.Tree.Node(have[i])
			if quirk(a.Title) != b.Title || quirk(a.Notes) != b.Notes {
				t.Fatalf("text mismatch at %d: %q/%q vs %q/%q", i, a.Title, a.Notes, b.Title, b.Notes)
			}
			if a.Completed != b.Completed || a.Starred != b.Starred || a.Expanded != b.Expanded {
				t.Fatalf("flag mismatch at %d", i)
			}
			if !a.CreatedAt.Truncate(time.Second).Equal(b.CreatedAt) || !a.CompletedAt.Equal(b.CompletedAt) {
				t.Fatalf("date mismatch at %d: %v vs %v", i, a.CreatedAt, b.CreatedAt)
			}
			if doc.Tree.Depth(want[i]) != got.Tree.Depth(have[i]) {
				t.Fatalf("shape mismatch at %d", i)
			}
			if strings.Join(a.Attrs.Keys(), ",") != strings.Join(b.Attrs.Keys(), ",") {
				t.Fatalf("extension keys %v vs %v", a.Attrs.Keys(), b.Attrs.Keys())
			}
			for k, v := range a.Attrs.All() {
				if bv, _ := b.Attrs.Get(k); bv != quirk(v) {
					t.Fatalf("extension %s: %q vs %q", k, bv, v)
				}
			}
		}
	})
}
