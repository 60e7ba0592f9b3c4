// Package clipboard carries copied outline legs between documents.
//
// A payload is the source file path plus the leg rendered as an OPML fragment.
// It is wrapped in a typed JSON envelope so that unrelated clipboard text is
// recognised and ignored.
package clipboard

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	sysclip "github.com/atotto/clipboard"
	"github.com/goccy/go-json"

	"outliner-cli/internal/store"
)

// PayloadType tags envelopes written by this program.
const PayloadType = "application/x-outliner-opml"

// ErrEmpty means the board holds no outline payload.
var ErrEmpty = errors.New("clipboard holds no outline")

type Payload struct {
	SourceFile string `json:"sourceFile"`
	ContentXML string `json:"contentXML"`
}

type envelope struct {
	Type string `json:"type"`
	Payload
}

func Encode(p Payload) ([]byte, error) {
	return json.Marshal(envelope{Type: PayloadType, Payload: p})
}

// Decode unwraps an envelope. Anything that is not one reports ErrEmpty.
func Decode(b []byte) (Payload, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil || env.Type != PayloadType || env.ContentXML == "" {
		return Payload{}, ErrEmpty
	}
	return env.Payload, nil
}

// Board is somewhere a payload can be parked.
type Board interface {
	Write(Payload) error
	Read() (Payload, error)
	Clear() error
}

// System uses the operating system clipboard.
type System struct{}

func (System) Write(p Payload) error {
	b, err := Encode(p)
	if err != nil {
		return err
	}
	if err := sysclip.WriteAll(string(b)); err != nil {
		return fmt.Errorf("write system clipboard: %w", err)
	}
	return nil
}

func (System) Read() (Payload, error) {
	s, err := sysclip.ReadAll()
	if err != nil {
		return Payload{}, fmt.Errorf("read system clipboard: %w", err)
	}
	return Decode([]byte(s))
}

func (System) Clear() error {
	return sysclip.WriteAll("")
}

// Available reports whether a system clipboard tool is usable.
func Available() bool { return !sysclip.Unsupported }

// File keeps the payload in a file, for headless machines and for sharing
// between CLI invocations.
type File struct {
	Path string
}

func (f File) Write(p Payload) error {
	b, err := Encode(p)
	if err != nil {
		return err
	}
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return store.AtomicWriteFile(dir, "clipboard.*.tmp", f.Path, b, 0o600)
}

func (f File) Read() (Payload, error) {
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return Payload{}, ErrEmpty
	}
	if err != nil {
		return Payload{}, err
	}
	return Decode(b)
}

func (f File) Clear() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Memory is an in-process board used by the shell and in tests.
type Memory struct {
	mu  sync.Mutex
	raw []byte
}

func (m *Memory) Write(p Payload) error {
	b, err := Encode(p)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.raw = b
	m.mu.Unlock()
	return nil
}

func (m *Memory) Read() (Payload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Decode(m.raw)
}

func (m *Memory) Clear() error {
	m.mu.Lock()
	m.raw = nil
	m.mu.Unlock()
	return nil
}

// HasOutline reports whether b currently holds a payload.
func HasOutline(b Board) bool {
	_, err := b.Read()
	return err == nil
}
