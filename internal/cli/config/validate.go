package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/memristor/internal/artifact"
	"github.com/leapstack-labs/memristor/internal/cli/output"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	if c.Render.Debounce <= 0 {
		errs = append(errs, fmt.Errorf("render.debounce must be positive, got %s", c.Render.Debounce))
	}
	if strings.TrimSpace(c.Compiler.Binary) == "" {
		errs = append(errs, errors.New("compiler.binary is required"))
	}
	if c.Compiler.Timeout < 0 {
		errs = append(errs, fmt.Errorf("compiler.timeout must not be negative, got %s", c.Compiler.Timeout))
	}
	if _, err := artifact.ParseLayout(c.Render.OutputTemplate); err != nil {
		errs = append(errs, fmt.Errorf("render.output_template: %w", err))
	}
	if !output.ValidMode(c.OutputFormat) {
		errs = append(errs, fmt.Errorf("output must be one of %s, got %q", strings.Join(output.Modes, "|"), c.OutputFormat))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.UI.Port < 0 || c.UI.Port > 65535 {
		errs = append(errs, fmt.Errorf("ui.port out of range: %d", c.UI.Port))
	}

	return errors.Join(errs...)
}

// ParseLevel parses a log level name. Empty selects the default level.
func ParseLevel(name string) (slog.Level, error) {
	if name == "" {
		name = DefaultLogLevel
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("log_level: unknown level %q", name)
	}
	return level, nil
}

// Layout returns the parsed output template.
func (c *Config) Layout() (artifact.Layout, error) {
	return artifact.ParseLayout(c.Render.OutputTemplate)
}
