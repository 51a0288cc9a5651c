package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/memristor/internal/cli/config"
	"github.com/leapstack-labs/memristor/internal/cli/output"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ErrConfigExists is returned by init when memristor.yaml is already there.
var ErrConfigExists = errors.New("memristor.yaml already exists. Use --force to overwrite")

// projectFile is the memristor.yaml init writes. Only the keys a user is
// likely to edit are included.
type projectFile struct {
	Compiler struct {
		Binary string `yaml:"binary"`
	} `yaml:"compiler"`
	Render struct {
		Debounce string `yaml:"debounce"`
		Trailing bool   `yaml:"trailing"`
	} `yaml:"render"`
	UI struct {
		Port     int  `yaml:"port"`
		AutoOpen bool `yaml:"auto_open"`
	} `yaml:"ui"`
	StatePath string `yaml:"state_path"`
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new memristor project",
		Long: `Initialize a new memristor project.

This creates:
  - typst/main.typ, a starter document
  - pdf/ for exported documents
  - memristor.yaml with the default settings
  - .gitignore excluding the compile history`,
		Example: `  # Initialize in current directory
  memristor init

  # Initialize in a new directory
  memristor init notes

  # Overwrite an existing config and starter files
  memristor init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			cfg := config.GetConfig(cmd.Context())
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

			return runInit(r, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration and starter files")

	return cmd
}

func runInit(r *output.Renderer, dir string, force bool) error {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	configPath := filepath.Join(dir, "memristor.yaml")
	if _, err := os.Stat(configPath); err == nil && !force {
		return ErrConfigExists
	}

	files, err := copyTemplate("default", dir, force)
	if err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	if err := writeProjectFile(configPath); err != nil {
		return err
	}
	files = append(files, "memristor.yaml")

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]any{"dir": dir, "files": files})
	}

	for _, f := range files {
		r.StatusLine(f, "success", "")
	}

	r.Println("")
	r.Success("memristor project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Write your documents under typst/")
	r.Println("  2. Run 'memristor preview --file typst/main.typ' to open a live preview")
	r.Println("  3. Run 'memristor doctor' if the preview stays empty")

	return nil
}

func writeProjectFile(path string) error {
	d := config.Default()

	var pf projectFile
	pf.Compiler.Binary = d.Compiler.Binary
	pf.Render.Debounce = d.Render.Debounce.String()
	pf.Render.Trailing = d.Render.Trailing
	pf.UI.Port = d.UI.Port
	pf.UI.AutoOpen = d.UI.AutoOpen
	pf.StatePath = d.StatePath

	data, err := yaml.Marshal(&pf)
	if err != nil {
		return fmt.Errorf("failed to encode memristor.yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write memristor.yaml: %w", err)
	}
	return nil
}
