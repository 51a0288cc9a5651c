package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// WriteFile writes content to dir/rel, creating parent directories.
// It returns the absolute path of the written file.
func WriteFile(t testing.TB, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// Touch sets the modification time of path.
func Touch(t testing.TB, path string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

// NewProject creates a project layout under a temp directory:
//
//	typst/top_level.typ
//	typst/dir1/in_dir1.typ
//	typst/dir2/.gitkeep
//	pdf/
//
// and returns its root.
func NewProject(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()
	WriteFile(t, dir, "typst/top_level.typ", "= Top level\n")
	WriteFile(t, dir, "typst/dir1/in_dir1.typ", "= In dir1\n")
	WriteFile(t, dir, "typst/dir2/.gitkeep", "")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pdf"), 0o750))
	return dir
}
