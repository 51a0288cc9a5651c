// Package render decides when to compile the open file and publishes the
// resulting pages.
//
// The Scheduler is driven by one coordinator goroutine. RequestRender is the
// synchronous start half of a compile cycle: it either declines (no file, or
// still inside the debounce window) or snapshots the text and launches the
// compile on its own goroutine. The finished cycle comes back as an Outcome on
// Completions, and the coordinator hands it to Apply. Nothing is queued; the
// next eligible request simply compiles whatever the text is by then.
package render

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/leapstack-labs/memristor/internal/artifact"
)

// DefaultDebounce is the minimum time between the starts of two compile cycles.
const DefaultDebounce = 500 * time.Millisecond

// ErrNoScratch is returned by New when Config.Scratch is nil.
var ErrNoScratch = errors.New("scheduler requires a scratch directory")

// Compiler compiles source text into page files. compile.Invoker implements it.
type Compiler interface {
	Compile(ctx context.Context, text, sourcePath, outputPath string) error
}

// TextSource yields the current text of the open file. buffer.File implements it.
type TextSource interface {
	Text() string
}

// Config configures a Scheduler.
type Config struct {
	Compiler Compiler
	Scratch  *artifact.Scratch
	Layout   artifact.Layout
	Debounce time.Duration
	Logger   *slog.Logger
}

// Scheduler rate-limits compile cycles for the open file. It is not safe for
// concurrent use; all methods except InFlight are called from the
// coordinator goroutine.
type Scheduler struct {
	compiler Compiler
	scratch  *artifact.Scratch
	layout   artifact.Layout
	debounce time.Duration
	logger   *slog.Logger

	// The limiter holds one token that refills over one debounce interval.
	// A successful AllowN spends it and so sets the next eligible time;
	// a refused AllowN spends nothing and leaves that time alone.
	limiter     *rate.Limiter
	completions chan Outcome

	path      string
	src       TextSource
	cycle     uint64
	applied   uint64
	artifacts []artifact.Artifact

	// Started cycles not yet applied or dropped.
	inFlight atomic.Int64
}

// New creates a Scheduler. A zero Debounce selects DefaultDebounce and a zero
// Layout selects artifact.DefaultTemplate.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Scratch == nil {
		return nil, ErrNoScratch
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Layout.Template == "" {
		cfg.Layout = artifact.MustLayout(artifact.DefaultTemplate)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	return &Scheduler{
		compiler:    cfg.Compiler,
		scratch:     cfg.Scratch,
		layout:      cfg.Layout,
		debounce:    cfg.Debounce,
		logger:      cfg.Logger,
		limiter:     rate.NewLimiter(rate.Every(cfg.Debounce), 1),
		completions: make(chan Outcome, 4),
	}, nil
}

// Debounce returns the configured debounce interval.
func (s *Scheduler) Debounce() time.Duration {
	return s.debounce
}

// Open makes path the file that backs the pipeline.
func (s *Scheduler) Open(path string, src TextSource) {
	s.path = path
	s.src = src
	s.logger.Debug("render source opened", slog.String("path", path))
}

// CloseFile detaches the open file. Cycles still in flight for it are
// discarded when they complete.
func (s *Scheduler) CloseFile() {
	s.path = ""
	s.src = nil
	s.artifacts = nil
}

// OpenFile returns the path of the open file, or "".
func (s *Scheduler) OpenFile() string {
	return s.path
}

// InFlight reports whether a started cycle has not been applied yet.
func (s *Scheduler) InFlight() bool {
	return s.inFlight.Load() > 0
}

// Artifacts returns a copy of the published pages.
func (s *Scheduler) Artifacts() []artifact.Artifact {
	return slices.Clone(s.artifacts)
}

// Completions delivers exactly one Completed or Failed outcome per started cycle.
func (s *Scheduler) Completions() <-chan Outcome {
	return s.completions
}

// RequestRender starts a compile cycle unless no file is open or the previous
// cycle started less than one debounce interval before now.
func (s *Scheduler) RequestRender(ctx context.Context, now time.Time) Outcome {
	if s.src == nil {
		return Outcome{Kind: OutcomeNoOp}
	}

	if !s.limiter.AllowN(now, 1) {
		retry := s.retryAt(now)
		s.logger.Debug("render debounced", slog.Time("retry_at", retry))
		return Outcome{Kind: OutcomeDebounced, RetryAt: retry}
	}

	s.cycle++
	job := &Job{
		Cycle:      s.cycle,
		ID:         uuid.NewString(),
		SourcePath: s.path,
		Text:       s.src.Text(),
		Dir:        s.scratch.CycleDir(s.cycle),
		Started:    now,
	}
	s.inFlight.Add(1)

	s.logger.Debug("render started",
		slog.Uint64("cycle", job.Cycle),
		slog.String("path", job.SourcePath))

	go s.run(ctx, job)

	return Outcome{Kind: OutcomePending, Job: job}
}

// retryAt is the instant the limiter next holds a whole token.
func (s *Scheduler) retryAt(now time.Time) time.Time {
	tokens := s.limiter.TokensAt(now)
	if tokens >= 1 {
		return now
	}
	return now.Add(time.Duration((1 - tokens) * float64(s.debounce)))
}

// run delivers the outcome of job unless ctx ends first. Nothing applies
// outcomes once the coordinator is gone, so a dropped cycle settles itself.
func (s *Scheduler) run(ctx context.Context, job *Job) {
	out := s.execute(ctx, job)
	if ctx.Err() == nil {
		select {
		case s.completions <- out:
			return
		case <-ctx.Done():
		}
	}
	s.logger.Debug("render dropped",
		slog.Uint64("cycle", job.Cycle),
		slog.Any("error", ctx.Err()))
	s.settle()
}

func (s *Scheduler) settle() {
	for {
		n := s.inFlight.Load()
		if n <= 0 || s.inFlight.CompareAndSwap(n, n-1) {
			return
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, job *Job) Outcome {
	fail := func(err error) Outcome {
		return Outcome{Kind: OutcomeFailed, Job: job, Err: err, Finished: time.Now()}
	}

	dir, err := s.scratch.NextCycle(job.Cycle)
	if err != nil {
		return fail(err)
	}

	if err := s.compiler.Compile(ctx, job.Text, job.SourcePath, filepath.Join(dir, s.layout.Template)); err != nil {
		return fail(err)
	}

	pages, err := artifact.Collect(dir, s.layout)
	if err != nil {
		return fail(err)
	}

	return Outcome{Kind: OutcomeCompleted, Job: job, Artifacts: pages, Finished: time.Now()}
}

// Apply publishes a finished cycle. A completed cycle replaces the pages
// wholesale; a failed one leaves them untouched. Outcomes for a cycle older
// than the last applied one, or for a file that is no longer open, are
// discarded. Apply reports whether the outcome was applied.
func (s *Scheduler) Apply(out Outcome) bool {
	if !out.Done() || out.Job == nil {
		return false
	}
	s.settle()

	job := out.Job
	if job.Cycle <= s.applied || job.SourcePath != s.path {
		s.logger.Debug("discarding stale render",
			slog.Uint64("cycle", job.Cycle),
			slog.Uint64("applied", s.applied),
			slog.String("path", job.SourcePath))
		if err := s.scratch.Remove(job.Cycle); err != nil {
			s.logger.Warn("failed to remove stale cycle", slog.Any("error", err))
		}
		return false
	}

	s.applied = job.Cycle

	if out.Kind == OutcomeFailed {
		s.logger.Debug("render failed",
			slog.Uint64("cycle", job.Cycle),
			slog.Any("error", out.Err))
		return true
	}

	s.artifacts = slices.Clone(out.Artifacts)
	if err := s.scratch.PruneBefore(job.Cycle); err != nil {
		s.logger.Warn("failed to prune scratch directory", slog.Any("error", err))
	}

	s.logger.Debug("render published",
		slog.Uint64("cycle", job.Cycle),
		slog.Int("pages", len(out.Artifacts)))
	return true
}
