package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const cyclePrefix = "cycle-"

// Scratch is the session's temporary output directory. Each compile cycle
// writes into its own subdirectory so leftovers from an earlier cycle never
// share a directory with fresh pages.
type Scratch struct {
	dir string
}

// NewScratch creates a uniquely named directory under parent (the OS temp
// directory when parent is empty).
func NewScratch(parent string) (*Scratch, error) {
	if parent != "" {
		if err := os.MkdirAll(parent, 0o750); err != nil {
			return nil, &ScratchDirUnavailableError{Path: parent, Err: err}
		}
	}
	dir, err := os.MkdirTemp(parent, "memristor-*")
	if err != nil {
		return nil, &ScratchDirUnavailableError{Path: parent, Err: err}
	}
	return &Scratch{dir: dir}, nil
}

// Dir returns the scratch directory path.
func (s *Scratch) Dir() string {
	return s.dir
}

// CycleDir returns the directory used by compile cycle n without creating it.
func (s *Scratch) CycleDir(n uint64) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s%06d", cyclePrefix, n))
}

// NextCycle creates the directory for compile cycle n.
func (s *Scratch) NextCycle(n uint64) (string, error) {
	dir := s.CycleDir(n)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", &ScratchDirUnavailableError{Path: dir, Err: err}
	}
	return dir, nil
}

// Remove deletes the directory of compile cycle n.
func (s *Scratch) Remove(n uint64) error {
	dir := s.CycleDir(n)
	if err := os.RemoveAll(dir); err != nil {
		return &FilesystemError{Op: "remove", Path: dir, Err: err}
	}
	return nil
}

// PruneBefore removes the directories of every cycle older than n.
// Later cycles may still be compiling and are left alone.
func (s *Scratch) PruneBefore(n uint64) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return &FilesystemError{Op: "list", Path: s.dir, Err: err}
	}

	var errs []error
	for _, entry := range entries {
		digits, ok := strings.CutPrefix(entry.Name(), cyclePrefix)
		if !entry.IsDir() || !ok {
			continue
		}
		cycle, err := strconv.ParseUint(digits, 10, 64)
		if err != nil || cycle >= n {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			errs = append(errs, &FilesystemError{Op: "remove", Path: path, Err: err})
		}
	}
	return errors.Join(errs...)
}

// Close removes the scratch directory and everything in it.
func (s *Scratch) Close() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return &FilesystemError{Op: "remove", Path: s.dir, Err: err}
	}
	return nil
}
