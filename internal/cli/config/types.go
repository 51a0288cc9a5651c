// Package config provides configuration management for the memristor CLI.
package config

import (
	"time"

	"github.com/leapstack-labs/memristor/internal/artifact"
	"github.com/leapstack-labs/memristor/internal/compile"
	"github.com/leapstack-labs/memristor/internal/render"
)

// Config holds all CLI configuration options.
type Config struct {
	ProjectDir   string         `koanf:"project_dir"`
	StatePath    string         `koanf:"state_path"`
	Verbose      bool           `koanf:"verbose"`
	OutputFormat string         `koanf:"output"`
	LogLevel     string         `koanf:"log_level"`
	Compiler     CompilerConfig `koanf:"compiler"`
	Render       RenderConfig   `koanf:"render"`
	Scratch      ScratchConfig  `koanf:"scratch"`
	UI           UIConfig       `koanf:"ui"`

	// ProjectRoot is where relative paths were resolved from.
	ProjectRoot string `koanf:"-"`
	// ConfigFile is the config file that was loaded, if any.
	ConfigFile string `koanf:"-"`
}

// CompilerConfig configures the typst invocation.
type CompilerConfig struct {
	Binary  string        `koanf:"binary"`
	Args    []string      `koanf:"args"`
	Timeout time.Duration `koanf:"timeout"`
}

// RenderConfig configures the compile scheduler.
type RenderConfig struct {
	Debounce       time.Duration `koanf:"debounce"`
	Trailing       bool          `koanf:"trailing"`
	OutputTemplate string        `koanf:"output_template"`
}

// ScratchConfig configures where compile output is written.
type ScratchConfig struct {
	// Dir is the parent of the per-session scratch directory. Empty means
	// the system temp directory.
	Dir string `koanf:"dir"`
}

// UIConfig holds configuration for the preview server.
type UIConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	AutoOpen bool   `koanf:"auto_open"`
}

// Config file names, in lookup order.
var configFileNames = []string{"memristor.yaml", "memristor.yml"}

// Default configuration values.
const (
	DefaultStateFile      = ".memristor/history.db"
	DefaultOutput         = "auto"
	DefaultLogLevel       = "warn"
	DefaultCompileTimeout = 60 * time.Second
	DefaultHost           = "127.0.0.1"
	DefaultPort           = 8766
)

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		StatePath:    DefaultStateFile,
		OutputFormat: DefaultOutput,
		LogLevel:     DefaultLogLevel,
		Compiler: CompilerConfig{
			Binary:  compile.DefaultBinary,
			Timeout: DefaultCompileTimeout,
		},
		Render: RenderConfig{
			Debounce:       render.DefaultDebounce,
			Trailing:       true,
			OutputTemplate: artifact.DefaultTemplate,
		},
		UI: UIConfig{
			Host:     DefaultHost,
			Port:     DefaultPort,
			AutoOpen: true,
		},
	}
}

// defaultsMap is Default flattened into koanf keys.
func defaultsMap() map[string]any {
	d := Default()
	return map[string]any{
		"state_path":             d.StatePath,
		"verbose":                false,
		"output":                 d.OutputFormat,
		"log_level":              d.LogLevel,
		"compiler.binary":        d.Compiler.Binary,
		"compiler.args":          []string{},
		"compiler.timeout":       d.Compiler.Timeout.String(),
		"render.debounce":        d.Render.Debounce.String(),
		"render.trailing":        d.Render.Trailing,
		"render.output_template": d.Render.OutputTemplate,
		"scratch.dir":            "",
		"ui.host":                d.UI.Host,
		"ui.port":                d.UI.Port,
		"ui.auto_open":           d.UI.AutoOpen,
	}
}
