package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFlags mirrors the root command's persistent flags.
func newFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("config", "", "")
	fs.String("project-dir", "", "")
	fs.String("state", "", "")
	fs.BoolP("verbose", "v", false, "")
	fs.StringP("output", "o", "", "")
	fs.String("log-level", "", "")
	fs.String("typst", "", "")
	fs.Duration("debounce", 0, "")
	return fs
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "memristor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// chdir switches to dir for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	t.Chdir(dir)
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)

	assert.Equal(t, wd, cfg.ProjectRoot)
	assert.Equal(t, wd, cfg.ProjectDir)
	assert.Equal(t, filepath.Join(wd, DefaultStateFile), cfg.StatePath)
	assert.Equal(t, "typst", cfg.Compiler.Binary)
	assert.Equal(t, DefaultCompileTimeout, cfg.Compiler.Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Render.Debounce)
	assert.True(t, cfg.Render.Trailing)
	assert.Equal(t, "page{0p}.svg", cfg.Render.OutputTemplate)
	assert.Equal(t, DefaultPort, cfg.UI.Port)
	assert.True(t, cfg.UI.AutoOpen)
	assert.Empty(t, cfg.ConfigFile)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
state_path: state/runs.db
log_level: info
compiler:
  binary: /opt/typst/bin/typst
  args: ["--font-path", "fonts"]
  timeout: 2m
render:
  debounce: 750ms
  trailing: false
  output_template: "p{p}.svg"
scratch:
  dir: .scratch
ui:
  port: 9000
  auto_open: false
`)
	chdir(t, dir)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	wd, _ := os.Getwd()
	assert.Equal(t, filepath.Join(wd, "memristor.yaml"), cfg.ConfigFile)
	assert.Equal(t, filepath.Join(wd, "state", "runs.db"), cfg.StatePath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "/opt/typst/bin/typst", cfg.Compiler.Binary)
	assert.Equal(t, []string{"--font-path", "fonts"}, cfg.Compiler.Args)
	assert.Equal(t, 2*time.Minute, cfg.Compiler.Timeout)
	assert.Equal(t, 750*time.Millisecond, cfg.Render.Debounce)
	assert.False(t, cfg.Render.Trailing)
	assert.Equal(t, "p{p}.svg", cfg.Render.OutputTemplate)
	assert.Equal(t, filepath.Join(wd, ".scratch"), cfg.Scratch.Dir)
	assert.Equal(t, 9000, cfg.UI.Port)
	assert.False(t, cfg.UI.AutoOpen)
}

func TestLoadConfig_FoundUpward(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "render:\n  debounce: 1s\n")
	nested := filepath.Join(root, "typst", "chapters")
	require.NoError(t, os.MkdirAll(nested, 0o750))
	chdir(t, nested)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	rootAbs, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	gotRoot, err := filepath.EvalSymlinks(cfg.ProjectRoot)
	require.NoError(t, err)
	assert.Equal(t, rootAbs, gotRoot)
	assert.Equal(t, time.Second, cfg.Render.Debounce)
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "ui:\n  port: 7000\n")
	chdir(t, t.TempDir())

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.UI.Port)
	assert.Equal(t, dir, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(dir, DefaultStateFile), cfg.StatePath)
}

func TestLoadConfig_Precedence(t *testing.T) {
	tests := []struct {
		name  string
		file  string
		env   map[string]string
		flags []string
		want  time.Duration
	}{
		{
			name: "default",
			want: 500 * time.Millisecond,
		},
		{
			name: "file over default",
			file: "render:\n  debounce: 1s\n",
			want: time.Second,
		},
		{
			name: "env over file",
			file: "render:\n  debounce: 1s\n",
			env:  map[string]string{"MEMRISTOR_RENDER_DEBOUNCE": "2s"},
			want: 2 * time.Second,
		},
		{
			name:  "flag over env",
			file:  "render:\n  debounce: 1s\n",
			env:   map[string]string{"MEMRISTOR_RENDER_DEBOUNCE": "2s"},
			flags: []string{"--debounce", "3s"},
			want:  3 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.file != "" {
				writeConfig(t, dir, tt.file)
			}
			chdir(t, dir)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			fs := newFlags()
			require.NoError(t, fs.Parse(tt.flags))

			cfg, err := LoadConfig("", fs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Render.Debounce)
		})
	}
}

func TestLoadConfig_EnvKeys(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("MEMRISTOR_COMPILER_BINARY", "/usr/local/bin/typst")
	t.Setenv("MEMRISTOR_COMPILER_ARGS", "--font-path fonts")
	t.Setenv("MEMRISTOR_UI_AUTO_OPEN", "false")
	t.Setenv("MEMRISTOR_LOG_LEVEL", "debug")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "/usr/local/bin/typst", cfg.Compiler.Binary)
	assert.Equal(t, []string{"--font-path", "fonts"}, cfg.Compiler.Args)
	assert.False(t, cfg.UI.AutoOpen)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_Flags(t *testing.T) {
	cwd := t.TempDir()
	chdir(t, cwd)
	project := t.TempDir()

	fs := newFlags()
	require.NoError(t, fs.Parse([]string{
		"--project-dir", project,
		"--state", "history.db",
		"--typst", "typst-nightly",
		"-v",
		"-o", "json",
	}))

	cfg, err := LoadConfig("", fs)
	require.NoError(t, err)

	wd, _ := os.Getwd()
	assert.Equal(t, project, cfg.ProjectDir)
	assert.Equal(t, project, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(wd, "history.db"), cfg.StatePath, "flag paths resolve against the working directory")
	assert.Equal(t, "typst-nightly", cfg.Compiler.Binary)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "json", cfg.OutputFormat)
}

func TestLoadConfig_MemoryState(t *testing.T) {
	chdir(t, t.TempDir())
	fs := newFlags()
	require.NoError(t, fs.Parse([]string{"--state", ":memory:"}))

	cfg, err := LoadConfig("", fs)
	require.NoError(t, err)
	assert.Equal(t, ":memory:", cfg.StatePath)
}

func TestLoadConfig_BadFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "render: [unclosed\n")
	chdir(t, dir)

	_, err := LoadConfig("", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		errSubstr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "zero debounce", mutate: func(c *Config) { c.Render.Debounce = 0 }, errSubstr: "render.debounce must be positive"},
		{name: "negative debounce", mutate: func(c *Config) { c.Render.Debounce = -time.Second }, errSubstr: "render.debounce"},
		{name: "empty binary", mutate: func(c *Config) { c.Compiler.Binary = " " }, errSubstr: "compiler.binary is required"},
		{name: "negative timeout", mutate: func(c *Config) { c.Compiler.Timeout = -1 }, errSubstr: "compiler.timeout"},
		{name: "template without placeholder", mutate: func(c *Config) { c.Render.OutputTemplate = "page.svg" }, errSubstr: "render.output_template"},
		{name: "bad output", mutate: func(c *Config) { c.OutputFormat = "yaml" }, errSubstr: "output must be one of"},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }, errSubstr: "unknown level"},
		{name: "bad port", mutate: func(c *Config) { c.UI.Port = 70000 }, errSubstr: "ui.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	cfg := Default()
	logger, err := NewLogger(&buf, cfg)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	cfg.Verbose = true
	logger, err = NewLogger(&buf, cfg)
	require.NoError(t, err)
	logger.Debug("debugging")
	assert.Contains(t, buf.String(), "debugging")
}

func TestContextAccessors(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, Default(), GetConfig(ctx))
	assert.NotNil(t, GetLogger(ctx))

	cfg := Default()
	cfg.UI.Port = 1234
	logger := slog.New(slog.DiscardHandler)
	ctx = WithLogger(WithConfig(ctx, cfg), logger)

	assert.Same(t, cfg, GetConfig(ctx))
	assert.Same(t, logger, GetLogger(ctx))
}
