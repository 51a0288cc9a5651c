// Package compile runs the external typst compiler.
package compile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// DefaultBinary is the compiler looked up on PATH.
const DefaultBinary = "typst"

// waitDelay bounds how long Wait blocks on output pipes after the process is killed.
const waitDelay = 2 * time.Second

// Config configures an Invoker.
type Config struct {
	Binary  string
	Args    []string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Invoker runs one compilation per call. It holds no per-call state and may
// be shared.
type Invoker struct {
	binary  string
	args    []string
	timeout time.Duration
	logger  *slog.Logger
}

// New creates an Invoker.
func New(cfg Config) *Invoker {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Invoker{
		binary:  cfg.Binary,
		args:    cfg.Args,
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
	}
}

// Binary returns the configured compiler binary.
func (i *Invoker) Binary() string {
	return i.binary
}

// Check resolves the compiler binary and returns its path.
func (i *Invoker) Check() (string, error) {
	path, err := exec.LookPath(i.binary)
	if err != nil {
		return "", &ToolNotInstalledError{Binary: i.binary, Err: err}
	}
	return path, nil
}

// Version returns the first line of `<binary> --version`.
func (i *Invoker) Version(ctx context.Context) (string, error) {
	path, err := i.Check()
	if err != nil {
		return "", err
	}

	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		return "", &IOFailureError{Op: "version", Err: err}
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return line, nil
}

// Args returns the argument vector for compiling sourcePath into outputPath.
// The document itself is read from stdin.
func (i *Invoker) Args(sourcePath, outputPath string) []string {
	args := []string{"compile", "--root", filepath.Dir(sourcePath)}
	args = append(args, i.args...)
	return append(args, "-", outputPath)
}

// Compile feeds text to the compiler and waits for it to exit. Relative
// imports resolve against the directory of sourcePath. outputPath carries a
// page placeholder so the compiler writes one file per page.
//
// On error the caller must not assume anything about the files under
// outputPath's directory.
func (i *Invoker) Compile(ctx context.Context, text, sourcePath, outputPath string) error {
	path, err := i.Check()
	if err != nil {
		return err
	}

	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	args := i.Args(sourcePath, outputPath)
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = filepath.Dir(sourcePath)
	cmd.WaitDelay = waitDelay

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return &IOFailureError{Op: "stdin", Err: err}
	}

	i.logger.Debug("starting compiler",
		slog.String("binary", path),
		slog.Any("args", args))
	start := time.Now()

	if err := cmd.Start(); err != nil {
		return &IOFailureError{Op: "start", Err: err}
	}

	_, writeErr := io.WriteString(stdin, text)
	closeErr := stdin.Close()
	waitErr := cmd.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("compile %s: %w", sourcePath, ctxErr)
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			msg := strings.TrimSpace(stderr.String())
			i.logger.Debug("compiler failed",
				slog.Int("exit_code", exitErr.ExitCode()),
				slog.String("stderr", msg))
			return &CompilationFailedError{Message: msg, ExitCode: exitErr.ExitCode()}
		}
		return &IOFailureError{Op: "wait", Err: waitErr}
	}

	// A compiler that exits 0 without reading all input still did not see the document.
	if writeErr != nil {
		return &IOFailureError{Op: "write", Err: writeErr}
	}
	if closeErr != nil && !errors.Is(closeErr, io.ErrClosedPipe) {
		return &IOFailureError{Op: "write", Err: closeErr}
	}

	i.logger.Debug("compiler finished", slog.Duration("duration", time.Since(start)))
	return nil
}
