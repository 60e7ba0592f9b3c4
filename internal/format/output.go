// Package format renders command results for machines: JSON, EDN or YAML.
// Struct field names always come from json tags, whichever format is chosen.
package format

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Formats lists the machine-readable output formats.
var Formats = []string{"json", "edn", "yaml"}

// Write writes v in format. An empty format means JSON; "yml" is accepted
// for YAML.
func Write(w io.Writer, v any, format string, pretty bool) error {
	switch format {
	case "", "json":
		return WriteJSON(w, v, pretty)
	case "edn":
		return WriteEDN(w, v, pretty)
	case "yaml", "yml":
		return WriteYAML(w, v)
	}
	return fmt.Errorf("unknown format: %s", format)
}

// WriteJSON writes one JSON document and a newline. HTML characters in
// titles and notes are left as they are.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func WriteYAML(w io.Writer, v any) error {
	x, err := generic(v)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(x); err != nil {
		return err
	}
	return enc.Close()
}

// generic round-trips v through JSON into maps, slices and scalars.
func generic(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var x any
	if err := json.Unmarshal(b, &x); err != nil {
		return nil, err
	}
	return x, nil
}
