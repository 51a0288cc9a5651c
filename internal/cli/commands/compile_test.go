package commands

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/memristor/internal/buffer"
	"github.com/leapstack-labs/memristor/internal/cli/output"
	clitest "github.com/leapstack-labs/memristor/internal/cli/testutil"
	"github.com/leapstack-labs/memristor/internal/compile"
	"github.com/leapstack-labs/memristor/internal/state"
	"github.com/leapstack-labs/memristor/internal/testutil"
)

func TestCompileCommand(t *testing.T) {
	dir := clitest.SetupTestProject(t)
	cfg := clitest.TestConfig(t, dir, testutil.FakeCompiler(t))

	out, err := execute(t, NewCompileCommand(), cfg, filepath.Join(dir, "typst", "main.typ"))
	require.NoError(t, err)

	clitest.AssertNoANSI(t, out)
	assert.Contains(t, out, "page1.svg")
	assert.Contains(t, out, "page2.svg")
	assert.Contains(t, out, "2 page(s)")
	assert.Regexp(t, `\d+ B\s*\|`, out, "page sizes are humanized")
	assert.Contains(t, out, cfg.Scratch.Dir, "pages stay in scratch without --out")
}

func TestCompileCommand_Out(t *testing.T) {
	dir := clitest.SetupTestProject(t)
	cfg := clitest.TestConfig(t, dir, testutil.FakeCompiler(t))
	cfg.OutputFormat = string(output.ModeJSON)
	outDir := filepath.Join(t.TempDir(), "pages")

	out, err := execute(t, NewCompileCommand(), cfg, filepath.Join(dir, "typst", "main.typ"), "--out", outDir)
	require.NoError(t, err)

	var got CompileOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, outDir, got.Dir)
	require.Len(t, got.Pages, 2)
	assert.Equal(t, 1, got.Pages[0].Page)
	assert.Equal(t, filepath.Join(outDir, "page1.svg"), got.Pages[0].Path)
	assert.Positive(t, got.Pages[0].Size)

	content, err := os.ReadFile(filepath.Join(outDir, "page2.svg"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "= Main")

	entries, err := os.ReadDir(cfg.Scratch.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch is removed once pages are copied out")
}

func TestCompileCommand_RecordsRun(t *testing.T) {
	dir := clitest.SetupTestProject(t)
	cfg := clitest.TestConfig(t, dir, testutil.FakeCompiler(t))

	_, err := execute(t, NewCompileCommand(), cfg, filepath.Join(dir, "typst", "main.typ"))
	require.NoError(t, err)

	store, err := state.OpenAndMigrate(cfg.StatePath, nil)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	runs, err := store.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, state.RunStatusCompleted, runs[0].Status)
	assert.Equal(t, 2, runs[0].PageCount)
	assert.Equal(t, filepath.Join(dir, "typst", "main.typ"), runs[0].SourcePath)
}

func TestCompileCommand_NoHistory(t *testing.T) {
	dir := clitest.SetupTestProject(t)
	cfg := clitest.TestConfig(t, dir, testutil.FakeCompiler(t))

	_, err := execute(t, NewCompileCommand(), cfg, filepath.Join(dir, "typst", "main.typ"), "--no-history")
	require.NoError(t, err)

	_, err = os.Stat(cfg.StatePath)
	assert.True(t, os.IsNotExist(err), "history database should not be created")
}

func TestCompileCommand_Errors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, dir string) string
		binary  func(t *testing.T) string
		wantErr any
	}{
		{
			name: "compiler reports an error",
			setup: func(t *testing.T, dir string) string {
				return testutil.WriteFile(t, dir, "typst/broken.typ", "= FAIL\n")
			},
			binary:  func(t *testing.T) string { return testutil.FakeCompiler(t) },
			wantErr: &compile.CompilationFailedError{},
		},
		{
			name: "compiler not installed",
			setup: func(_ *testing.T, dir string) string {
				return filepath.Join(dir, "typst", "main.typ")
			},
			binary:  func(*testing.T) string { return "memristor-test-no-such-typst" },
			wantErr: &compile.ToolNotInstalledError{},
		},
		{
			name: "missing source",
			setup: func(_ *testing.T, dir string) string {
				return filepath.Join(dir, "typst", "missing.typ")
			},
			binary:  func(t *testing.T) string { return testutil.FakeCompiler(t) },
			wantErr: &buffer.ReadFileError{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := clitest.SetupTestProject(t)
			file := tt.setup(t, dir)
			cfg := clitest.TestConfig(t, dir, tt.binary(t))

			_, err := execute(t, NewCompileCommand(), cfg, file)
			require.Error(t, err)

			switch want := tt.wantErr.(type) {
			case *compile.CompilationFailedError:
				assert.True(t, errors.As(err, &want), "got %T: %v", err, err)
			case *compile.ToolNotInstalledError:
				assert.True(t, errors.As(err, &want), "got %T: %v", err, err)
			case *buffer.ReadFileError:
				assert.True(t, errors.As(err, &want), "got %T: %v", err, err)
			}
		})
	}
}
