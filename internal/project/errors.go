package project

import (
	"errors"
	"fmt"
)

// ErrNotProjectDirectory is returned when a directory lacks the typst/ and pdf/ subdirectories.
var ErrNotProjectDirectory = errors.New("not a memristor project directory (expected typst/ and pdf/)")

// ReadDirError reports a directory that could not be listed while building a tree.
type ReadDirError struct {
	Path string
	Err  error
}

func (e *ReadDirError) Error() string {
	return fmt.Sprintf("failed to read directory %s: %v", e.Path, e.Err)
}

func (e *ReadDirError) Unwrap() error {
	return e.Err
}
