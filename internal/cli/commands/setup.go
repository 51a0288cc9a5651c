package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/memristor/internal/artifact"
	"github.com/leapstack-labs/memristor/internal/cli/config"
	"github.com/leapstack-labs/memristor/internal/cli/output"
	"github.com/leapstack-labs/memristor/internal/compile"
	"github.com/leapstack-labs/memristor/internal/render"
	"github.com/leapstack-labs/memristor/internal/state"
	"github.com/leapstack-labs/memristor/internal/ui/notifier"
	"github.com/leapstack-labs/memristor/internal/watch"
	"github.com/leapstack-labs/memristor/internal/workspace"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext builds the context from the config and logger the root
// command stored on cmd.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := config.GetConfig(cmd.Context())
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// projectDir returns the directory named by the first argument, or the
// configured project directory.
func projectDir(cfg *config.Config, args []string) (string, error) {
	dir := cfg.ProjectDir
	if len(args) > 0 && args[0] != "" {
		dir = args[0]
	}
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	return abs, nil
}

func newInvoker(cfg *config.Config, logger *slog.Logger) *compile.Invoker {
	return compile.New(compile.Config{
		Binary:  cfg.Compiler.Binary,
		Args:    cfg.Compiler.Args,
		Timeout: cfg.Compiler.Timeout,
		Logger:  logger,
	})
}

// newScheduler creates a scheduler with its own scratch directory. The caller
// closes the scratch directory.
func newScheduler(cfg *config.Config, logger *slog.Logger) (*render.Scheduler, *artifact.Scratch, error) {
	layout, err := cfg.Layout()
	if err != nil {
		return nil, nil, err
	}
	scratch, err := artifact.NewScratch(cfg.Scratch.Dir)
	if err != nil {
		return nil, nil, err
	}
	s, err := render.New(render.Config{
		Compiler: newInvoker(cfg, logger),
		Scratch:  scratch,
		Layout:   layout,
		Debounce: cfg.Render.Debounce,
		Logger:   logger,
	})
	if err != nil {
		_ = scratch.Close()
		return nil, nil, err
	}
	return s, scratch, nil
}

// openStore opens the compile history database, creating its directory.
func openStore(cfg *config.Config, logger *slog.Logger) (*state.SQLiteStore, error) {
	if cfg.StatePath != ":memory:" {
		stateDir := filepath.Dir(cfg.StatePath)
		if stateDir != "." && stateDir != "" {
			if err := os.MkdirAll(stateDir, 0750); err != nil {
				return nil, fmt.Errorf("failed to create state directory: %w", err)
			}
		}
	}
	return state.OpenAndMigrate(cfg.StatePath, logger)
}

// session is a running workspace with its watcher and history store, shared
// by the preview and browse commands.
type session struct {
	Workspace *workspace.Workspace
	Notifier  *notifier.Notifier
	Store     *state.SQLiteStore

	dir     string
	file    string
	watcher *watch.Watcher
	scratch *artifact.Scratch
	logger  *slog.Logger
}

// newSession wires a workspace for dir. file, if set, is opened once the
// workspace runs. A history store that fails to open is logged and skipped.
func newSession(cmdCtx *CommandContext, dir, file string) (*session, error) {
	cfg, logger := cmdCtx.Cfg, cmdCtx.Logger

	scheduler, scratch, err := newScheduler(cfg, logger)
	if err != nil {
		return nil, err
	}

	watcher, err := watch.New(logger)
	if err != nil {
		_ = scratch.Close()
		return nil, err
	}

	s := &session{
		Notifier: notifier.New(),
		dir:      dir,
		file:     file,
		watcher:  watcher,
		scratch:  scratch,
		logger:   logger,
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		logger.Warn("compile history disabled", slog.Any("error", err))
	} else {
		s.Store = store
	}

	wsCfg := workspace.Config{
		Scheduler: scheduler,
		Notifier:  s.Notifier,
		Watcher:   watcher,
		Trailing:  cfg.Render.Trailing,
		Logger:    logger,
	}
	if s.Store != nil {
		wsCfg.Store = s.Store
	}
	s.Workspace = workspace.New(wsCfg)

	return s, nil
}

// Start runs the workspace and the watcher in g, then opens the project and
// the initial file.
func (s *session) Start(ctx context.Context, g *errgroup.Group) error {
	g.Go(func() error {
		return s.Workspace.Run(ctx)
	})
	g.Go(func() error {
		return s.watcher.Run(ctx, func(string) {
			if err := s.Workspace.Submit(ctx, workspace.ContentEdited{}); err != nil && !errors.Is(err, workspace.ErrStopped) {
				s.logger.Debug("dropped edit notification", slog.Any("error", err))
			}
		})
	})

	if err := s.Workspace.Submit(ctx, workspace.DirectoryOpened{Path: s.dir}); err != nil {
		return err
	}
	if s.file != "" {
		if err := s.Workspace.Submit(ctx, workspace.FileOpened{Path: s.file}); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the store and the scratch directory.
func (s *session) Close() {
	if s.Store != nil {
		_ = s.Store.Close()
	}
	if err := s.scratch.Close(); err != nil {
		s.logger.Warn("failed to remove scratch directory", slog.Any("error", err))
	}
}

// resolveFile makes file absolute. Relative paths are taken against the
// working directory first and the project directory second.
func resolveFile(dir, file string) (string, error) {
	if file == "" || filepath.IsAbs(file) {
		return file, nil
	}
	if _, err := os.Stat(file); err == nil {
		return filepath.Abs(file)
	}
	return filepath.Join(dir, file), nil
}
