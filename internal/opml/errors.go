package opml

import (
	"errors"
	"fmt"
)

// ErrNothingToPaste is returned when a transfer payload holds no outline.
var ErrNothingToPaste = errors.New("nothing to paste")

// LoadError reports a file that could not be read or is not valid OPML.
type LoadError struct {
	Path string
	Err  error
}

func (e LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("load outline: %v", e.Err)
	}
	return fmt.Sprintf("load outline %s: %v", e.Path, e.Err)
}

func (e LoadError) Unwrap() error { return e.Err }

// SaveError reports a destination that could not be written.
type SaveError struct {
	Path string
	Err  error
}

func (e SaveError) Error() string {
	return fmt.Sprintf("save outline %s: %v", e.Path, e.Err)
}

func (e SaveError) Unwrap() error { return e.Err }
