package outline

import (
	"errors"
	"fmt"
)

var (
	ErrSelfMove     = errors.New("cannot move an item onto itself")
	ErrAncestorMove = errors.New("cannot move an item into its own subtree")
	ErrNoParent     = errors.New("target has no parent")
	ErrNotFound     = errors.New("not found")
)

type NotFoundError struct {
	ID ID
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("node not found: %s", e.ID)
}

func (e NotFoundError) Is(target error) bool { return target == ErrNotFound }

// MoveError reports a refused structural move. The tree is untouched when one
// is returned.
type MoveError struct {
	Reason error
	Source ID
	Target ID
}

func (e MoveError) Error() string {
	return fmt.Sprintf("move %s -> %s: %v", e.Source, e.Target, e.Reason)
}

func (e MoveError) Unwrap() error { return e.Reason }
