package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"outliner-cli/internal/outline"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.RecentDays != outline.DefaultRecentDays || !cfg.History.Enabled || cfg.Clipboard != ClipboardSystem {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Dir() != dir {
		t.Fatalf("expected dir remembered")
	}
	if _, err := os.Stat(cfg.Path()); !os.IsNotExist(err) {
		t.Fatalf("Load must not create a file")
	}
}

func TestLoadOrCreate_WritesDefaultsThenReadsEdits(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg, err := LoadOrCreate(dir)
	if err != nil {
		t.Fatalf("LoadOrCreate error: %v", err)
	}
	b, err := os.ReadFile(cfg.Path())
	if err != nil {
		t.Fatalf("expected config written: %v", err)
	}
	if !strings.Contains(string(b), "recent_days = 5") {
		t.Fatalf("unexpected file:\n%s", b)
	}

	cfg.RecentDays = 9
	cfg.DefaultScope = "title"
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if _, err := os.Stat(cfg.Path() + ".bak"); err != nil {
		t.Fatalf("expected .bak of previous config: %v", err)
	}

	again, err := LoadOrCreate(dir)
	if err != nil {
		t.Fatalf("reload error: %v", err)
	}
	if again.RecentDays != 9 || again.Scope() != outline.ScopeTitle {
		t.Fatalf("edits not persisted: %+v", again)
	}
	if got := again.FilterOptions().Window; got != 9*24*time.Hour {
		t.Fatalf("unexpected window %v", got)
	}
}

func TestLoad_RejectsInvalid(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"syntax":    "recent_days = ",
		"days":      "recent_days = 0",
		"scope":     "recent_days = 3\ndefault_scope = \"everywhere\"",
		"clipboard": "recent_days = 3\nclipboard = \"carrier-pigeon\"",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, DefaultFileName), []byte(body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(dir); err == nil {
				t.Fatalf("expected error for %q", body)
			}
		})
	}
}

func TestDir_EnvOverride(t *testing.T) {
	t.Setenv("OUTLINER_CONFIG_DIR", "/tmp/outliner-test")
	got, err := Dir()
	if err != nil || got != "/tmp/outliner-test" {
		t.Fatalf("Dir() = %q, %v", got, err)
	}
}

func TestPresets_OverlayAndSave(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), PresetsFileName)
	list, err := LoadPresets(path)
	if err != nil {
		t.Fatalf("LoadPresets error: %v", err)
	}
	if len(list) != len(BuiltinPresets()) {
		t.Fatalf("expected only built-ins; got %d", len(list))
	}

	if err := SavePreset(path, Preset{Name: "milk", Text: "milk", Scope: "title"}); err != nil {
		t.Fatalf("SavePreset error: %v", err)
	}
	if err := SavePreset(path, Preset{Name: "starred", Type: "starred", Text: "urgent"}); err != nil {
		t.Fatalf("SavePreset error: %v", err)
	}
	if err := SavePreset(path, Preset{Name: "bad", Type: "sideways"}); err == nil {
		t.Fatalf("expected invalid preset to be refused")
	}

	list, err = LoadPresets(path)
	if err != nil {
		t.Fatalf("LoadPresets error: %v", err)
	}
	if len(list) != len(BuiltinPresets())+1 {
		t.Fatalf("expected one extra preset; got %d", len(list))
	}
	starred, ok := FindPreset(list, "STARRED")
	if !ok || starred.Builtin || starred.Text != "urgent" {
		t.Fatalf("expected user override of starred; got %+v", starred)
	}

	milk, _ := FindPreset(list, "milk")
	opts, err := milk.Options(outline.FilterOptions{Scope: outline.ScopeNotes})
	if err != nil {
		t.Fatalf("Options error: %v", err)
	}
	if opts.Text != "milk" || opts.Scope != outline.ScopeTitle || opts.Type != outline.FilterAll {
		t.Fatalf("unexpected options: %+v", opts)
	}
}
