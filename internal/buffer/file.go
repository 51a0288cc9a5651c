// Package buffer holds the text of the currently open source file.
package buffer

import (
	"fmt"
	"os"
	"sync"
	"unicode/utf8"
)

// ReadFileError reports a source file that could not be read. It is
// recoverable: the caller keeps whatever file was open before.
type ReadFileError struct {
	Path string
	Err  error
}

func (e *ReadFileError) Error() string {
	return fmt.Sprintf("failed to read %s: %v", e.Path, e.Err)
}

func (e *ReadFileError) Unwrap() error {
	return e.Err
}

// File is an in-memory copy of one source file.
type File struct {
	path string

	mu   sync.RWMutex
	text string
}

// Open reads path as UTF-8 text.
func Open(path string) (*File, error) {
	text, err := read(path)
	if err != nil {
		return nil, err
	}
	return &File{path: path, text: text}, nil
}

// FromString creates a buffer that is not backed by a readable file.
func FromString(path, text string) *File {
	return &File{path: path, text: text}
}

// Path returns the file path.
func (f *File) Path() string {
	return f.path
}

// Text returns the current contents.
func (f *File) Text() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.text
}

// Set replaces the contents, as an editor would after a keystroke.
func (f *File) Set(text string) {
	f.mu.Lock()
	f.text = text
	f.mu.Unlock()
}

// Reload re-reads the file from disk. It reports whether the contents changed.
// On error the previous contents are kept.
func (f *File) Reload() (bool, error) {
	text, err := read(f.path)
	if err != nil {
		return false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if text == f.text {
		return false, nil
	}
	f.text = text
	return true, nil
}

func read(path string) (string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the project tree or the command line
	if err != nil {
		return "", &ReadFileError{Path: path, Err: err}
	}
	if !utf8.Valid(data) {
		return "", &ReadFileError{Path: path, Err: fmt.Errorf("file is not valid UTF-8")}
	}
	return string(data), nil
}
