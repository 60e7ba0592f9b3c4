package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"outliner-cli/internal/outline"
	"outliner-cli/internal/store"
)

// Preset is a named, saved search.
type Preset struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Text        string `yaml:"text,omitempty" json:"text,omitempty"`
	Scope       string `yaml:"scope,omitempty" json:"scope,omitempty"`
	Type        string `yaml:"type,omitempty" json:"type,omitempty"`
	RecentDays  int    `yaml:"recent_days,omitempty" json:"recentDays,omitempty"`

	Builtin bool `yaml:"-" json:"builtin"`
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// BuiltinPresets has one entry per type filter.
func BuiltinPresets() []Preset {
	return []Preset{
		{Name: "completed", Description: "Completed items", Type: "completed", Builtin: true},
		{Name: "incomplete", Description: "Items still open", Type: "incomplete", Builtin: true},
		{Name: "starred", Description: "Starred items", Type: "starred", Builtin: true},
		{Name: "added", Description: "Recently added", Type: "recently-added", Builtin: true},
		{Name: "done-lately", Description: "Recently completed", Type: "recently-completed", Builtin: true},
		{Name: "touched", Description: "Recently updated", Type: "recently-updated", Builtin: true},
	}
}

// LoadPresets returns the built-in presets overlaid with those in path.
// User presets replace built-ins of the same name.
func LoadPresets(path string) ([]Preset, error) {
	out := BuiltinPresets()
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	var f presetFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	for _, p := range f.Presets {
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			return nil, fmt.Errorf("preset without a name in %s", filepath.Base(path))
		}
		if _, err := p.Options(outline.FilterOptions{}); err != nil {
			return nil, fmt.Errorf("preset %q: %w", p.Name, err)
		}
		if i := indexPreset(out, p.Name); i >= 0 {
			out[i] = p
		} else {
			out = append(out, p)
		}
	}
	return out, nil
}

// SavePreset adds or replaces one user preset in path.
func SavePreset(path string, p Preset) error {
	if _, err := p.Options(outline.FilterOptions{}); err != nil {
		return err
	}
	var f presetFile
	if b, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(b, &f); err != nil {
			return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	p.Builtin = false
	if i := indexPreset(f.Presets, p.Name); i >= 0 {
		f.Presets[i] = p
	} else {
		f.Presets = append(f.Presets, p)
	}
	b, err := yaml.Marshal(f)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return store.AtomicWriteFile(dir, "presets.yaml.*.tmp", path, b, 0o644)
}

func FindPreset(list []Preset, name string) (Preset, bool) {
	if i := indexPreset(list, name); i >= 0 {
		return list[i], true
	}
	return Preset{}, false
}

func indexPreset(list []Preset, name string) int {
	for i, p := range list {
		if strings.EqualFold(p.Name, name) {
			return i
		}
	}
	return -1
}

// Options applies the preset on top of base.
func (p Preset) Options(base outline.FilterOptions) (outline.FilterOptions, error) {
	opts := base
	if p.Text != "" {
		opts.Text = p.Text
	}
	if p.Scope != "" {
		s, err := outline.ParseScope(p.Scope)
		if err != nil {
			return opts, err
		}
		opts.Scope = s
	}
	if p.Type != "" {
		ft, err := outline.ParseFilterType(p.Type)
		if err != nil {
			return opts, err
		}
		opts.Type = ft
	}
	if p.RecentDays > 0 {
		opts.Window = outline.RecentWindow(p.RecentDays)
	}
	return opts, nil
}
