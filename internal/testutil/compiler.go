package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeCompiler mimics `typst compile --root <dir> [flags] - <output>`.
// It reads the document from stdin and writes page1.svg and page2.svg next to
// the output template. A document containing FAIL makes it exit 1 with a
// diagnostic on stderr. A document containing SLOW makes it sleep first.
const fakeCompiler = `#!/bin/sh
if [ "$1" = "--version" ]; then
  echo "typst 0.0.0-fake (test)"
  exit 0
fi
out=""
for a in "$@"; do out="$a"; done
input=$(cat)
case "$input" in
  *SLOW*) sleep 1 ;;
esac
case "$input" in
  *FAIL*)
    echo "error: unexpected end of document" >&2
    exit 1
    ;;
esac
dir=$(dirname "$out")
printf '%s\n' "$*" > "$dir/args.log"
printf '<svg>%s</svg>' "$input" > "$dir/page1.svg"
printf '<svg>%s</svg>' "$input" > "$dir/page2.svg"
`

// FakeCompiler installs a stand-in compiler script and returns its path.
// Tests using it are skipped on Windows.
func FakeCompiler(t testing.TB) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake compiler is a shell script")
	}
	path := filepath.Join(t.TempDir(), "typst")
	require.NoError(t, os.WriteFile(path, []byte(fakeCompiler), 0o700)) //nolint:gosec // test helper must be executable
	return path
}

// ScriptCompiler installs an arbitrary shell script as the compiler.
func ScriptCompiler(t testing.TB, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake compiler is a shell script")
	}
	path := filepath.Join(t.TempDir(), "typst")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o700)) //nolint:gosec // test helper must be executable
	return path
}
