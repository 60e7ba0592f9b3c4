package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// testEnv is an isolated config dir plus a document path inside it.
type testEnv struct {
	cfgDir string
	doc    string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "config")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	cfg := "clipboard = \"file\"\n\n[history]\nenabled = true\nkeep = 5\n"
	if err := os.WriteFile(filepath.Join(cfgDir, "config.toml"), []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return testEnv{cfgDir: cfgDir, doc: filepath.Join(dir, "plans.opml")}
}

func runCLI(t *testing.T, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()

	cmd := NewRootCmd()

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)

	e := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), e
}

// run runs a command with --format json and returns the data payload.
func (e testEnv) run(t *testing.T, args ...string) any {
	t.Helper()
	full := append([]string{"--config-dir", e.cfgDir, "--format", "json"}, args...)
	stdout, stderr, err := runCLI(t, full)
	if err != nil {
		t.Fatalf("command failed: outliner %v\nerr: %v\nstderr:\n%s\nstdout:\n%s", args, err, stderr, stdout)
	}
	var env map[string]any
	if err := json.Unmarshal(stdout, &env); err != nil {
		t.Fatalf("unmarshal stdout as json envelope: %v\nstdout:\n%s\nargs: %v", err, stdout, args)
	}
	data, ok := env["data"]
	if !ok {
		t.Fatalf("expected JSON envelope to contain data key; got: %v", env)
	}
	return data
}

// text runs a command in text mode and returns stdout.
func (e testEnv) text(t *testing.T, args ...string) string {
	t.Helper()
	full := append([]string{"--config-dir", e.cfgDir, "--no-color"}, args...)
	stdout, stderr, err := runCLI(t, full)
	if err != nil {
		t.Fatalf("command failed: outliner %v\nerr: %v\nstderr:\n%s", args, err, stderr)
	}
	return string(stdout)
}

func (e testEnv) fail(t *testing.T, args ...string) string {
	t.Helper()
	full := append([]string{"--config-dir", e.cfgDir, "--format", "json"}, args...)
	_, stderr, err := runCLI(t, full)
	if err == nil {
		t.Fatalf("expected outliner %v to fail", args)
	}
	return string(stderr)
}

func titles(t *testing.T, items any) []string {
	t.Helper()
	xs, ok := items.([]any)
	if !ok {
		t.Fatalf("expected list, got %T", items)
	}
	var out []string
	for _, x := range xs {
		m := x.(map[string]any)
		out = append(out, m["title"].(string))
	}
	return out
}

func childTitles(t *testing.T, item any) []string {
	t.Helper()
	return titles(t, item.(map[string]any)["children"])
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// seed builds:
//
//	Groceries
//	  Milk
//	  Bread
//	Bank
//	Garden
func (e testEnv) seed(t *testing.T) {
	t.Helper()
	e.run(t, "new", e.doc, "--title", "Plans")
	e.run(t, "edit", e.doc, "1", "--title", "Groceries")
	e.run(t, "add", e.doc, "Milk", "--at", "1", "--position", "child")
	e.run(t, "add", e.doc, "Bread", "--at", "1.1")
	e.run(t, "add", e.doc, "Bank")
	e.run(t, "add", e.doc, "Garden")
}

func TestCLI_BuildAndShow(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	e.seed(t)

	items := e.run(t, "show", e.doc)
	if got := titles(t, items); !equalStrings(got, []string{"Groceries", "Bank", "Garden"}) {
		t.Fatalf("top level = %v", got)
	}
	if got := childTitles(t, items.([]any)[0]); !equalStrings(got, []string{"Milk", "Bread"}) {
		t.Fatalf("Groceries children = %v", got)
	}

	leg := e.run(t, "show", e.doc, "1")
	if got := leg.(map[string]any)["title"]; got != "Groceries" {
		t.Fatalf("leg title = %v", got)
	}

	out := e.text(t, "show", e.doc, "--all")
	for _, want := range []string{"Groceries", "  • 1.1 Milk", "  • 1.2 Bread", "• 2 Bank"} {
		if !strings.Contains(out, want) {
			t.Fatalf("text show missing %q:\n%s", want, out)
		}
	}
}

func TestCLI_NewRefusesExistingFile(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	e.run(t, "new", e.doc)
	if msg := e.fail(t, "new", e.doc); !strings.Contains(msg, "already exists") {
		t.Fatalf("stderr = %q", msg)
	}
	e.run(t, "new", e.doc, "--force")
}

func TestCLI_EditFlagsAndFilters(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	e.seed(t)

	e.run(t, "complete", e.doc, "1.1")
	e.run(t, "star", e.doc, "2")
	e.run(t, "edit", e.doc, "3", "--notes", "water the tomatoes")

	if got := titles(t, e.run(t, "list", e.doc, "completed")); !equalStrings(got, []string{"Milk"}) {
		t.Fatalf("completed = %v", got)
	}
	if got := titles(t, e.run(t, "list", e.doc, "starred")); !equalStrings(got, []string{"Bank"}) {
		t.Fatalf("starred = %v", got)
	}
	if got := titles(t, e.run(t, "search", e.doc, "TOMATO")); !equalStrings(got, []string{"Garden"}) {
		t.Fatalf("search notes = %v", got)
	}
	if got := titles(t, e.run(t, "search", e.doc, "tomato", "--scope", "title")); len(got) != 0 {
		t.Fatalf("title-only search = %v", got)
	}
	if got := titles(t, e.run(t, "search", e.doc, "--preset", "incomplete")); !equalStrings(got, []string{"Groceries", "Bread", "Bank", "Garden"}) {
		t.Fatalf("incomplete preset = %v", got)
	}

	e.run(t, "complete", e.doc, "1.1", "--undo")
	if got := e.run(t, "list", e.doc, "completed"); len(got.([]any)) != 0 {
		t.Fatalf("completed after undo = %v", got)
	}

	st := e.run(t, "stats", e.doc).(map[string]any)
	if st["nodes"].(float64) != 5 || st["starred"].(float64) != 1 {
		t.Fatalf("stats = %v", st)
	}
}

func TestCLI_Restructure(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	e.seed(t)

	// Garden under Bank, then back out.
	e.run(t, "indent", e.doc, "3")
	items := e.run(t, "show", e.doc)
	if got := childTitles(t, items.([]any)[1]); !equalStrings(got, []string{"Garden"}) {
		t.Fatalf("Bank children after indent = %v", got)
	}
	e.run(t, "promote", e.doc, "2.1")
	if got := titles(t, e.run(t, "show", e.doc)); !equalStrings(got, []string{"Groceries", "Bank", "Garden"}) {
		t.Fatalf("after promote = %v", got)
	}

	e.run(t, "move", e.doc, "3", "1", "--position", "above")
	if got := titles(t, e.run(t, "show", e.doc)); !equalStrings(got, []string{"Garden", "Groceries", "Bank"}) {
		t.Fatalf("after move = %v", got)
	}

	if msg := e.fail(t, "move", e.doc, "2", "2.1", "--position", "child"); !strings.Contains(msg, "own subtree") {
		t.Fatalf("move into own subtree stderr = %q", msg)
	}

	e.run(t, "sort", e.doc, "--by", "name")
	if got := titles(t, e.run(t, "show", e.doc)); !equalStrings(got, []string{"Bank", "Garden", "Groceries"}) {
		t.Fatalf("after sort = %v", got)
	}
	e.run(t, "sort", e.doc, "--by", "name", "--desc")
	if got := titles(t, e.run(t, "show", e.doc)); !equalStrings(got, []string{"Groceries", "Garden", "Bank"}) {
		t.Fatalf("after desc sort = %v", got)
	}

	e.run(t, "duplicate", e.doc, "1", "--leg")
	items = e.run(t, "show", e.doc)
	if got := titles(t, items); !equalStrings(got, []string{"Groceries", "Groceries", "Garden", "Bank"}) {
		t.Fatalf("after duplicate = %v", got)
	}
	if got := childTitles(t, items.([]any)[1]); !equalStrings(got, []string{"Milk", "Bread"}) {
		t.Fatalf("duplicated leg children = %v", got)
	}

	del := e.run(t, "delete", e.doc, "2").(map[string]any)
	if del["removed"].(float64) != 3 {
		t.Fatalf("delete = %v", del)
	}
	e.fail(t, "delete", e.doc, "9")
}

func TestCLI_CopyPasteAcrossDocuments(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	e.seed(t)
	other := filepath.Join(filepath.Dir(e.doc), "other.opml")
	e.run(t, "new", other)

	e.run(t, "copy", e.doc, "1")
	e.run(t, "paste", other, "--at", "1")
	items := e.run(t, "show", other)
	if got := titles(t, items); !equalStrings(got, []string{"New Outline", "Groceries"}) {
		t.Fatalf("other after paste = %v", got)
	}
	if got := childTitles(t, items.([]any)[1]); !equalStrings(got, []string{"Milk", "Bread"}) {
		t.Fatalf("pasted children = %v", got)
	}

	e.run(t, "cut", e.doc, "2")
	if got := titles(t, e.run(t, "show", e.doc)); !equalStrings(got, []string{"Groceries", "Garden"}) {
		t.Fatalf("after cut = %v", got)
	}
	e.run(t, "paste", other)
	if got := titles(t, e.run(t, "show", other)); !equalStrings(got, []string{"New Outline", "Groceries", "Bank"}) {
		t.Fatalf("other after second paste = %v", got)
	}
}

func TestCLI_ExpandCollapse(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	e.seed(t)

	e.run(t, "collapse", e.doc, "1")
	out := e.text(t, "show", e.doc)
	if strings.Contains(out, "Milk") || !strings.Contains(out, "(+2)") {
		t.Fatalf("collapsed show:\n%s", out)
	}
	e.run(t, "expand", e.doc, "-r")
	if out := e.text(t, "show", e.doc); !strings.Contains(out, "Milk") {
		t.Fatalf("expanded show:\n%s", out)
	}
	e.fail(t, "expand", e.doc)
}

func TestCLI_ExportXMLRoundTrips(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	e.seed(t)

	out := filepath.Join(filepath.Dir(e.doc), "leg.opml")
	_, stderr, err := runCLI(t, []string{"--config-dir", e.cfgDir, "export", e.doc, "1", "--xml", "-o", out})
	if err != nil {
		t.Fatalf("export: %v\n%s", err, stderr)
	}
	items := e.run(t, "show", out)
	if got := titles(t, items); !equalStrings(got, []string{"Groceries"}) {
		t.Fatalf("exported leg = %v", got)
	}
	if got := childTitles(t, items.([]any)[0]); !equalStrings(got, []string{"Milk", "Bread"}) {
		t.Fatalf("exported children = %v", got)
	}
}

func TestCLI_HistoryRestore(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	e.run(t, "new", e.doc)
	e.run(t, "add", e.doc, "Keep me")
	e.run(t, "delete", e.doc, "2")

	snaps := e.run(t, "history", "list", e.doc).([]any)
	if len(snaps) != 3 {
		t.Fatalf("history = %d snapshots, want 3", len(snaps))
	}
	// Newest first: [delete, add, new].
	id := snaps[1].(map[string]any)["id"].(float64)

	e.run(t, "history", "restore", e.doc, strconv.FormatInt(int64(id), 10))
	if got := titles(t, e.run(t, "show", e.doc)); !equalStrings(got, []string{"New Outline", "Keep me"}) {
		t.Fatalf("after restore = %v", got)
	}
	if n := len(e.run(t, "history", "list", e.doc).([]any)); n != 4 {
		t.Fatalf("restore should record a snapshot; got %d", n)
	}
	e.fail(t, "history", "restore", e.doc, "999")
	e.fail(t, "history", "restore", e.doc, "abc")
}

func TestCLI_PresetsSaveAndUse(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	e.seed(t)

	e.run(t, "presets", "save", "money", "--text", "bank", "--scope", "title")
	list := e.run(t, "presets")
	found := false
	for _, p := range list.([]any) {
		if p.(map[string]any)["name"] == "money" {
			found = true
		}
	}
	if !found {
		t.Fatalf("saved preset not listed: %v", list)
	}
	if got := titles(t, e.run(t, "search", e.doc, "--preset", "money")); !equalStrings(got, []string{"Bank"}) {
		t.Fatalf("preset search = %v", got)
	}
	e.fail(t, "search", e.doc, "--preset", "nope")
	e.fail(t, "presets", "save", "bad", "--filter", "sideways")
}

func TestCLI_ConfigShowAndFormats(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	cfg := e.run(t, "config", "show").(map[string]any)
	if cfg["clipboard"] != "file" {
		t.Fatalf("config clipboard = %v", cfg["clipboard"])
	}
	if out := e.text(t, "config", "show"); !strings.Contains(out, "clipboard = 'file'") && !strings.Contains(out, `clipboard = "file"`) {
		t.Fatalf("toml config:\n%s", out)
	}

	e.run(t, "new", e.doc)
	for _, f := range []string{"yaml", "edn"} {
		stdout, stderr, err := runCLI(t, []string{"--config-dir", e.cfgDir, "--format", f, "show", e.doc})
		if err != nil {
			t.Fatalf("%s show: %v\n%s", f, err, stderr)
		}
		if !strings.Contains(string(stdout), "New Outline") {
			t.Fatalf("%s output:\n%s", f, stdout)
		}
	}
	if _, _, err := runCLI(t, []string{"--config-dir", e.cfgDir, "--format", "xml", "show", e.doc}); err == nil {
		t.Fatalf("expected unknown format to fail")
	}
}

func TestCLI_MissingFile(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	if msg := e.fail(t, "show", e.doc); !strings.Contains(msg, "plans.opml") {
		t.Fatalf("stderr = %q", msg)
	}
}
