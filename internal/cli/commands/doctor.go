package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/leapstack-labs/memristor/internal/cli/config"
	"github.com/leapstack-labs/memristor/internal/cli/output"
	"github.com/leapstack-labs/memristor/internal/compile"
	"github.com/leapstack-labs/memristor/internal/project"
	"github.com/spf13/cobra"
)

// Check statuses, as understood by output.Renderer.StatusLine.
const (
	checkPass = "success"
	checkFail = "failed"
	checkWarn = "warn"
	checkSkip = "skipped"
)

// versionTimeout bounds the `typst --version` check.
const versionTimeout = 10 * time.Second

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	ProjectDir string        `json:"project_dir"`
	Checks     []HealthCheck `json:"checks"`
	Failures   int           `json:"failures"`
	Warnings   int           `json:"warnings"`
}

// HealthCheck represents a single check result.
type HealthCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor [directory]",
		Short: "Check the compiler and project setup",
		Long: `Check that everything a preview needs is in place:
- the typst compiler resolves on PATH and reports a version
- the project directory has typst/ and pdf/
- the config file and compile history database load

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Check the current project
  memristor doctor

  # Output as JSON
  memristor doctor -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd, args)
		},
	}
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	dir, err := projectDir(cmdCtx.Cfg, args)
	if err != nil {
		return err
	}

	out := buildDoctorOutput(cmd.Context(), cmdCtx, dir)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(out); err != nil {
			return err
		}
	case output.ModeMarkdown:
		renderDoctorMarkdown(r, out)
	default:
		renderDoctorText(r, out)
	}

	if out.Failures > 0 {
		return fmt.Errorf("doctor found %d problem(s)", out.Failures)
	}
	return nil
}

func buildDoctorOutput(ctx context.Context, cmdCtx *CommandContext, dir string) *DoctorOutput {
	cfg, logger := cmdCtx.Cfg, cmdCtx.Logger
	inv := newInvoker(cfg, logger)

	checks := []HealthCheck{
		checkCompiler(inv),
		checkVersion(ctx, inv),
		checkProject(dir),
		checkConfigFile(cfg),
		checkState(cfg, cmdCtx),
	}

	out := &DoctorOutput{ProjectDir: dir, Checks: checks}
	for _, c := range checks {
		switch c.Status {
		case checkFail:
			out.Failures++
		case checkWarn:
			out.Warnings++
		}
	}
	return out
}

func checkCompiler(inv *compile.Invoker) HealthCheck {
	path, err := inv.Check()
	if err != nil {
		return HealthCheck{Name: "compiler", Status: checkFail, Detail: err.Error()}
	}
	return HealthCheck{Name: "compiler", Status: checkPass, Detail: path}
}

func checkVersion(ctx context.Context, inv *compile.Invoker) HealthCheck {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	v, err := inv.Version(ctx)
	if err != nil {
		// Already reported by the compiler check.
		return HealthCheck{Name: "version", Status: checkSkip, Detail: err.Error()}
	}
	return HealthCheck{Name: "version", Status: checkPass, Detail: v}
}

func checkProject(dir string) HealthCheck {
	if err := project.Validate(dir); err != nil {
		return HealthCheck{Name: "project", Status: checkFail, Detail: fmt.Sprintf("%s: %v", dir, err)}
	}
	return HealthCheck{Name: "project", Status: checkPass, Detail: dir}
}

func checkConfigFile(cfg *config.Config) HealthCheck {
	if cfg.ConfigFile == "" {
		return HealthCheck{Name: "config", Status: checkWarn, Detail: "no memristor.yaml found, using defaults"}
	}
	return HealthCheck{Name: "config", Status: checkPass, Detail: cfg.ConfigFile}
}

func checkState(cfg *config.Config, cmdCtx *CommandContext) HealthCheck {
	store, err := openStore(cfg, cmdCtx.Logger)
	if err != nil {
		return HealthCheck{Name: "history", Status: checkWarn, Detail: err.Error()}
	}
	defer func() { _ = store.Close() }()

	version, err := store.MigrationVersion()
	if err != nil {
		return HealthCheck{Name: "history", Status: checkWarn, Detail: err.Error()}
	}
	return HealthCheck{Name: "history", Status: checkPass, Detail: fmt.Sprintf("%s (schema v%d)", cfg.StatePath, version)}
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header1.Render("memristor doctor"))
	r.Println(styles.Muted.Render(strings.Repeat("=", 40)))
	r.Println("")

	for _, c := range out.Checks {
		r.StatusLine(c.Name, c.Status, c.Detail)
	}
	r.Println("")

	switch {
	case out.Failures > 0:
		r.Println(styles.Error.Render(fmt.Sprintf("%d problem(s), %d warning(s)", out.Failures, out.Warnings)))
	case out.Warnings > 0:
		r.Println(styles.Warning.Render(fmt.Sprintf("Ready, with %d warning(s)", out.Warnings)))
	default:
		r.Success("Ready to preview")
	}
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) {
	r.Println("# memristor doctor")
	r.Println("")
	r.Printf("Project: `%s`\n", out.ProjectDir)
	r.Println("")
	r.Println("## Checks")
	r.Println("")
	for _, c := range out.Checks {
		r.StatusLine(c.Name, c.Status, c.Detail)
	}
	r.Println("")
	r.Println("## Summary")
	r.Println("")
	r.Printf("- **Failures**: %d\n", out.Failures)
	r.Printf("- **Warnings**: %d\n", out.Warnings)
}
