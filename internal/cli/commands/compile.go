package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/leapstack-labs/memristor/internal/artifact"
	"github.com/leapstack-labs/memristor/internal/buffer"
	"github.com/leapstack-labs/memristor/internal/cli/output"
	"github.com/leapstack-labs/memristor/internal/render"
	"github.com/leapstack-labs/memristor/internal/state"
	"github.com/spf13/cobra"
)

// CompileOptions holds options for the compile command.
type CompileOptions struct {
	Out       string
	NoHistory bool
}

// CompileOutput is the JSON output for the compile command.
type CompileOutput struct {
	Source   string       `json:"source"`
	Dir      string       `json:"dir"`
	Pages    []PageOutput `json:"pages"`
	Duration string       `json:"duration"`
}

// PageOutput is one rendered page.
type PageOutput struct {
	Page int    `json:"page"`
	Name string `json:"name"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand() *cobra.Command {
	opts := &CompileOptions{}

	cmd := &cobra.Command{
		Use:   "compile <file>",
		Short: "Compile a typst file to SVG pages once",
		Long: `Run one compile cycle for a file, the same way the preview does, and list
the pages it produced.

The compiler is run with the project directory as --root and the file's text
on stdin. Without --out the pages stay in a scratch directory, which is printed.`,
		Example: `  # Compile and list the pages
  memristor compile typst/main.typ

  # Copy the pages into a directory
  memristor compile typst/main.typ --out build/pages`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Out, "out", "", "Directory to copy the pages into")
	cmd.Flags().BoolVar(&opts.NoHistory, "no-history", false, "Do not record the run in the compile history")

	return cmd
}

func runCompile(cmd *cobra.Command, file string, opts *CompileOptions) error {
	cmdCtx := NewCommandContext(cmd)
	cfg, logger, r := cmdCtx.Cfg, cmdCtx.Logger, cmdCtx.Renderer
	ctx := cmd.Context()

	path, err := filepath.Abs(file)
	if err != nil {
		return err
	}
	src, err := buffer.Open(path)
	if err != nil {
		return err
	}

	scheduler, scratch, err := newScheduler(cfg, logger)
	if err != nil {
		return err
	}
	keepScratch := opts.Out == ""
	defer func() {
		if !keepScratch {
			_ = scratch.Close()
		}
	}()

	var store state.Store
	if !opts.NoHistory {
		s, err := openStore(cfg, logger)
		if err != nil {
			logger.Warn("compile history disabled", slog.Any("error", err))
		} else {
			defer func() { _ = s.Close() }()
			store = s
		}
	}

	scheduler.Open(path, src)
	out, err := compileOnce(ctx, scheduler, store)
	if err != nil {
		keepScratch = false
		return err
	}

	pages := out.Artifacts
	dir := out.Job.Dir
	if opts.Out != "" {
		pages, err = copyPages(pages, opts.Out)
		if err != nil {
			return err
		}
		dir = opts.Out
	}

	result := CompileOutput{
		Source:   path,
		Dir:      dir,
		Pages:    pageOutputs(pages),
		Duration: out.Finished.Sub(out.Job.Started).Round(time.Millisecond).String(),
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(result)
	case output.ModeMarkdown:
		r.Header(1, "Compiled "+filepath.Base(path))
		r.Println("")
	}

	rows := make([][]any, 0, len(result.Pages))
	for _, p := range result.Pages {
		rows = append(rows, []any{p.Page, p.Name, humanize.IBytes(uint64(max(p.Size, 0)))})
	}
	r.Table([]string{"Page", "File", "Size"}, rows)
	r.Println("")
	r.Success(fmt.Sprintf("%d page(s) in %s", len(result.Pages), result.Duration))
	r.Println("Pages written to " + result.Dir)

	return nil
}

// compileOnce runs a single cycle through the scheduler and waits for it.
// The run is recorded in store when it is not nil.
func compileOnce(ctx context.Context, s *render.Scheduler, store state.Store) (render.Outcome, error) {
	start := s.RequestRender(ctx, time.Now())
	if start.Kind != render.OutcomePending {
		return start, fmt.Errorf("compile did not start: %s", start.Kind)
	}
	if store != nil {
		if _, err := store.CreateRun(ctx, state.RunStart{
			ID:         start.Job.ID,
			Cycle:      start.Job.Cycle,
			SourcePath: start.Job.SourcePath,
			StartedAt:  start.Job.Started,
		}); err != nil {
			store = nil
		}
	}

	var out render.Outcome
	select {
	case out = <-s.Completions():
	case <-ctx.Done():
		return start, ctx.Err()
	}
	s.Apply(out)

	if out.Kind == render.OutcomeFailed {
		if store != nil {
			_ = store.CompleteRun(ctx, out.Job.ID, state.RunStatusFailed, 0, out.Err.Error())
		}
		return out, out.Err
	}
	if store != nil {
		_ = store.CompleteRun(ctx, out.Job.ID, state.RunStatusCompleted, len(out.Artifacts), "")
	}
	return out, nil
}

// copyPages copies the pages into dir and returns them with their new paths.
func copyPages(pages []artifact.Artifact, dir string) ([]artifact.Artifact, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	copied := make([]artifact.Artifact, 0, len(pages))
	for _, p := range pages {
		dst := filepath.Join(dir, p.Name)
		if err := copyFile(p.Path, dst); err != nil {
			return nil, fmt.Errorf("failed to copy %s: %w", p.Name, err)
		}
		p.Path = dst
		copied = append(copied, p)
	}
	return copied, nil
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src) //nolint:gosec // src comes from the artifact set
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // dst is inside the chosen output directory
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, out.Close())
	}()

	_, err = io.Copy(out, in)
	return err
}

func pageOutputs(pages []artifact.Artifact) []PageOutput {
	result := make([]PageOutput, 0, len(pages))
	for _, p := range pages {
		var size int64
		if info, err := os.Stat(p.Path); err == nil {
			size = info.Size()
		}
		result = append(result, PageOutput{Page: p.Page, Name: p.Name, Path: p.Path, Size: size})
	}
	return result
}
