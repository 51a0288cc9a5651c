package artifact

import (
	"errors"
	"fmt"
	"io/fs"
)

// ErrInvalidTemplate is returned for output templates without a page placeholder.
var ErrInvalidTemplate = errors.New("output template must contain a {p} or {0p} page placeholder")

// FilesystemError wraps an OS-level failure while reading the scratch directory.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}

// Kind classifies the underlying error as "not_found", "permission" or "other".
func (e *FilesystemError) Kind() string {
	switch {
	case errors.Is(e.Err, fs.ErrNotExist):
		return "not_found"
	case errors.Is(e.Err, fs.ErrPermission):
		return "permission"
	default:
		return "other"
	}
}

// ScratchDirUnavailableError reports that the scratch directory could not be created.
type ScratchDirUnavailableError struct {
	Path string
	Err  error
}

func (e *ScratchDirUnavailableError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("scratch directory unavailable: %v", e.Err)
	}
	return fmt.Sprintf("scratch directory %s unavailable: %v", e.Path, e.Err)
}

func (e *ScratchDirUnavailableError) Unwrap() error {
	return e.Err
}
