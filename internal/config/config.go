// Package config holds user preferences. A Config is loaded once at start-up
// and passed to whatever needs it; there is no package-level instance.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"outliner-cli/internal/outline"
	"outliner-cli/internal/store"
)

const (
	DefaultFileName    = "config.toml"
	PresetsFileName    = "presets.yaml"
	HistoryFileName    = "history.sqlite"
	ClipboardFileName  = "clipboard.json"
	DefaultHistoryKeep = 20

	ClipboardSystem = "system"
	ClipboardFile   = "file"
)

type Config struct {
	// RecentDays is the window for the recently-* filters.
	RecentDays   int    `toml:"recent_days" json:"recentDays"`
	DefaultScope string `toml:"default_scope" json:"defaultScope"`

	LogLevel string `toml:"log_level" json:"logLevel"`
	// LogFile receives log output; empty means stderr.
	LogFile string `toml:"log_file" json:"logFile,omitempty"`

	// Clipboard is "system" or "file".
	Clipboard     string `toml:"clipboard" json:"clipboard"`
	ClipboardFile string `toml:"clipboard_file" json:"clipboardFile,omitempty"`

	History History `toml:"history" json:"history"`
	Render  Render  `toml:"render" json:"render"`

	dir string
}

type History struct {
	Enabled bool `toml:"enabled" json:"enabled"`
	Keep    int  `toml:"keep" json:"keep"`
}

type Render struct {
	Width int  `toml:"width" json:"width"`
	Color bool `toml:"color" json:"color"`
}

func Default() Config {
	return Config{
		RecentDays:   outline.DefaultRecentDays,
		DefaultScope: outline.ScopeTitleAndNotes.String(),
		LogLevel:     "warn",
		Clipboard:    ClipboardSystem,
		History:      History{Enabled: true, Keep: DefaultHistoryKeep},
		Render:       Render{Width: 100, Color: true},
	}
}

// Dir resolves the configuration directory: $OUTLINER_CONFIG_DIR when set,
// otherwise ~/.outliner.
func Dir() (string, error) {
	if v := strings.TrimSpace(os.Getenv("OUTLINER_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".outliner"), nil
}

// Load reads dir/config.toml. A missing file yields the defaults.
func Load(dir string) (Config, error) {
	cfg := Default()
	cfg.dir = dir
	b, err := os.ReadFile(filepath.Join(dir, DefaultFileName))
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", DefaultFileName, err)
	}
	cfg.dir = dir
	return cfg, cfg.Validate()
}

// LoadOrCreate is Load, writing the defaults first when no file exists.
func LoadOrCreate(dir string) (Config, error) {
	path := filepath.Join(dir, DefaultFileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := Default()
		cfg.dir = dir
		return cfg, cfg.Save()
	}
	return Load(dir)
}

func (c Config) Validate() error {
	if c.RecentDays <= 0 {
		return fmt.Errorf("recent_days must be positive (got %d)", c.RecentDays)
	}
	if _, err := outline.ParseScope(c.DefaultScope); err != nil {
		return fmt.Errorf("default_scope: %w", err)
	}
	switch c.Clipboard {
	case "", ClipboardSystem, ClipboardFile:
	default:
		return fmt.Errorf("clipboard must be %q or %q (got %q)", ClipboardSystem, ClipboardFile, c.Clipboard)
	}
	if c.History.Keep < 0 {
		return fmt.Errorf("history.keep must not be negative")
	}
	return nil
}

// Save writes the config atomically, keeping the previous file as .bak.
func (c Config) Save() error {
	if c.dir == "" {
		return errors.New("config has no directory")
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	b, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	path := c.Path()
	if prev, err := os.ReadFile(path); err == nil && len(prev) > 0 {
		_ = store.AtomicWriteFile(c.dir, "config.toml.bak.*.tmp", path+".bak", prev, 0o644)
	}
	return store.AtomicWriteFile(c.dir, "config.toml.*.tmp", path, b, 0o600)
}

// TOML renders the config as it would be saved.
func (c Config) TOML() ([]byte, error) { return toml.Marshal(c) }

func (c Config) Dir() string  { return c.dir }
func (c Config) Path() string { return filepath.Join(c.dir, DefaultFileName) }

func (c Config) HistoryPath() string { return filepath.Join(c.dir, HistoryFileName) }
func (c Config) PresetsPath() string { return filepath.Join(c.dir, PresetsFileName) }

func (c Config) ClipboardPath() string {
	if c.ClipboardFile != "" {
		return c.ClipboardFile
	}
	return filepath.Join(c.dir, ClipboardFileName)
}

// Scope returns the configured default text scope.
func (c Config) Scope() outline.Scope {
	s, err := outline.ParseScope(c.DefaultScope)
	if err != nil {
		return outline.ScopeTitleAndNotes
	}
	return s
}

// FilterOptions seeds search options from the config.
func (c Config) FilterOptions() outline.FilterOptions {
	return outline.FilterOptions{
		Scope:  c.Scope(),
		Window: outline.RecentWindow(c.RecentDays),
	}
}
