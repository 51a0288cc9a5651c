// Package workspace is the single-threaded coordinator between the project
// tree, the open file and the render scheduler.
//
// Viewers never touch those components directly. They submit events and read
// snapshots; every state change is announced on the notifier.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/leapstack-labs/memristor/internal/artifact"
	"github.com/leapstack-labs/memristor/internal/buffer"
	"github.com/leapstack-labs/memristor/internal/project"
	"github.com/leapstack-labs/memristor/internal/render"
	"github.com/leapstack-labs/memristor/internal/state"
	"github.com/leapstack-labs/memristor/internal/ui/notifier"
)

// ErrStopped is returned by Submit after Run has returned.
var ErrStopped = errors.New("workspace stopped")

// Follower is told which file to watch. watch.Watcher implements it.
type Follower interface {
	Follow(path string) error
}

// Config configures a Workspace.
type Config struct {
	Scheduler *render.Scheduler
	// Store records compile history. Optional.
	Store state.Store
	// Notifier is pinged after every state change. Optional.
	Notifier *notifier.Notifier
	// Watcher follows the open file. Optional.
	Watcher Follower
	// Trailing re-requests a debounced render once it becomes eligible.
	Trailing bool
	Logger   *slog.Logger

	now func() time.Time
}

// Snapshot is a copy of the workspace state for viewers.
type Snapshot struct {
	Version    uint64              `json:"version"`
	ProjectDir string              `json:"project_dir,omitempty"`
	Rows       []project.Row       `json:"rows"`
	OpenFile   string              `json:"open_file,omitempty"`
	Cycle      uint64              `json:"cycle"`
	Artifacts  []artifact.Artifact `json:"artifacts"`
	Compiling  bool                `json:"compiling"`
	LastResult render.Kind         `json:"last_result"`
	LastError  string              `json:"last_error,omitempty"`
	RetryAt    time.Time           `json:"retry_at,omitzero"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// Workspace owns the coordinator loop.
type Workspace struct {
	scheduler *render.Scheduler
	store     state.Store
	notifier  *notifier.Notifier
	watcher   Follower
	trailing  bool
	logger    *slog.Logger
	now       func() time.Time

	events  chan Event
	stopped chan struct{}

	// Owned by the Run goroutine.
	tree       *project.Tree
	file       *buffer.File
	cycle      uint64
	lastResult render.Kind
	lastErr    error
	retryAt    time.Time
	retryTimer *time.Timer

	mu       sync.RWMutex
	snapshot Snapshot
	// loaded is w.tree as seen by other goroutines. Only the file lists
	// are read through it, and those never change after project.Open.
	loaded *project.Tree
}

// New creates a Workspace. Run must be started before events are handled.
func New(cfg Config) *Workspace {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	return &Workspace{
		scheduler: cfg.Scheduler,
		store:     cfg.Store,
		notifier:  cfg.Notifier,
		watcher:   cfg.Watcher,
		trailing:  cfg.Trailing,
		logger:    cfg.Logger,
		now:       cfg.now,
		events:    make(chan Event, 64),
		stopped:   make(chan struct{}),
	}
}

// Submit enqueues an event for the coordinator loop.
func (w *Workspace) Submit(ctx context.Context, ev Event) error {
	select {
	case <-w.stopped:
		return ErrStopped
	default:
	}

	select {
	case w.events <- ev:
		return nil
	case <-w.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the most recently published state.
func (w *Workspace) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s := w.snapshot
	s.Rows = slices.Clone(s.Rows)
	s.Artifacts = slices.Clone(s.Artifacts)
	return s
}

// HasFile reports whether path is a file of the loaded project, expanded or not.
func (w *Workspace) HasFile(path string) bool {
	w.mu.RLock()
	tree := w.loaded
	w.mu.RUnlock()
	return tree.Contains(path)
}

// Run handles events until ctx is cancelled.
func (w *Workspace) Run(ctx context.Context) error {
	defer close(w.stopped)
	defer w.stopRetry()

	w.publish()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-w.events:
			w.handle(ctx, ev)
		case out := <-w.scheduler.Completions():
			w.handle(ctx, CompileCompleted{Outcome: out})
		}
		w.publish()
	}
}

func (w *Workspace) handle(ctx context.Context, ev Event) {
	w.logger.Debug("handling event", slog.String("event", ev.eventName()))

	switch ev := ev.(type) {
	case DirectoryOpened:
		w.openDirectory(ev.Path)
	case FileOpened:
		w.openFile(ctx, ev.Path)
	case ToggleExpand:
		w.tree.Toggle(ev.ID)
	case ContentEdited:
		w.contentEdited(ctx)
	case PreviewRequested:
		w.requestRender(ctx)
	case retryDue:
		w.retryTimer = nil
		w.retryAt = time.Time{}
		w.requestRender(ctx)
	case CompileCompleted:
		w.completed(ctx, ev.Outcome)
	default:
		w.logger.Warn("unknown event", slog.String("type", fmt.Sprintf("%T", ev)))
	}
}

func (w *Workspace) openDirectory(path string) {
	tree, err := project.Open(path, project.WithLogger(w.logger))
	if err != nil {
		// The previous tree stays in place.
		w.logger.Warn("failed to open project", slog.String("path", path), slog.Any("error", err))
		w.lastErr = err
		return
	}
	w.tree = tree
	w.lastErr = nil

	w.mu.Lock()
	w.loaded = tree
	w.mu.Unlock()

	w.logger.Info("project opened", slog.String("dir", tree.Dir))

	// A file from another project no longer belongs to the preview.
	if w.file != nil {
		if abs, err := filepath.Abs(w.file.Path()); err != nil || !tree.Contains(abs) {
			w.closeFile()
		}
	}
}

// closeFile detaches the open file and clears its pages.
func (w *Workspace) closeFile() {
	path := w.file.Path()
	w.stopRetry()
	w.scheduler.CloseFile()
	w.file = nil
	w.lastResult = render.OutcomeNoOp
	if w.watcher != nil {
		if err := w.watcher.Follow(""); err != nil {
			w.logger.Warn("failed to stop watching file", slog.Any("error", err))
		}
	}
	w.logger.Info("file closed", slog.String("path", path))
}

func (w *Workspace) openFile(ctx context.Context, path string) {
	f, err := buffer.Open(path)
	if err != nil {
		w.logger.Warn("failed to open file", slog.String("path", path), slog.Any("error", err))
		w.lastErr = err
		return
	}

	w.file = f
	w.lastErr = nil
	w.stopRetry()
	w.scheduler.Open(path, f)
	if w.watcher != nil {
		if err := w.watcher.Follow(path); err != nil {
			w.logger.Warn("failed to watch file", slog.String("path", path), slog.Any("error", err))
		}
	}
	w.logger.Info("file opened", slog.String("path", path))

	w.requestRender(ctx)
}

func (w *Workspace) contentEdited(ctx context.Context) {
	if w.file == nil {
		return
	}
	if _, err := w.file.Reload(); err != nil {
		w.logger.Warn("failed to reload file", slog.Any("error", err))
		w.lastErr = err
		return
	}
	w.requestRender(ctx)
}

func (w *Workspace) requestRender(ctx context.Context) {
	now := w.now()
	out := w.scheduler.RequestRender(ctx, now)

	switch out.Kind {
	case render.OutcomeDebounced:
		if w.trailing && w.retryTimer == nil {
			w.retryAt = out.RetryAt
			w.retryTimer = time.AfterFunc(out.RetryAt.Sub(now), func() {
				select {
				case w.events <- retryDue{}:
				case <-w.stopped:
				}
			})
		}
	case render.OutcomePending:
		w.lastResult = render.OutcomePending
		w.recordStart(ctx, out.Job)
	}
}

func (w *Workspace) completed(ctx context.Context, out render.Outcome) {
	applied := w.scheduler.Apply(out)

	switch {
	case !applied:
		w.recordEnd(ctx, out.Job, state.RunStatusDiscarded, 0, "")
		return
	case out.Kind == render.OutcomeFailed:
		w.lastResult = render.OutcomeFailed
		w.lastErr = out.Err
		w.recordEnd(ctx, out.Job, state.RunStatusFailed, 0, out.Err.Error())
	default:
		w.lastResult = render.OutcomeCompleted
		w.lastErr = nil
		w.cycle = out.Job.Cycle
		w.recordEnd(ctx, out.Job, state.RunStatusCompleted, len(out.Artifacts), "")
	}

	w.logger.Info("compile finished",
		slog.Uint64("cycle", out.Job.Cycle),
		slog.String("result", out.Kind.String()),
		slog.Int("pages", len(out.Artifacts)),
		slog.Duration("duration", out.Finished.Sub(out.Job.Started)))
}

func (w *Workspace) recordStart(ctx context.Context, job *render.Job) {
	if w.store == nil || job == nil {
		return
	}
	_, err := w.store.CreateRun(ctx, state.RunStart{
		ID:         job.ID,
		Cycle:      job.Cycle,
		SourcePath: job.SourcePath,
		StartedAt:  job.Started,
	})
	if err != nil {
		w.logger.Warn("failed to record run", slog.Any("error", err))
	}
}

func (w *Workspace) recordEnd(ctx context.Context, job *render.Job, status state.RunStatus, pages int, errMsg string) {
	if w.store == nil || job == nil {
		return
	}
	if err := w.store.CompleteRun(ctx, job.ID, status, pages, errMsg); err != nil {
		w.logger.Warn("failed to record run result", slog.Any("error", err))
	}
}

func (w *Workspace) stopRetry() {
	if w.retryTimer != nil {
		w.retryTimer.Stop()
		w.retryTimer = nil
		w.retryAt = time.Time{}
	}
}

func (w *Workspace) publish() {
	s := Snapshot{
		Rows:       w.tree.Rows(),
		Cycle:      w.cycle,
		Artifacts:  w.scheduler.Artifacts(),
		Compiling:  w.scheduler.InFlight(),
		LastResult: w.lastResult,
		RetryAt:    w.retryAt,
		UpdatedAt:  w.now(),
	}
	if w.tree != nil {
		s.ProjectDir = w.tree.Dir
	}
	if w.file != nil {
		s.OpenFile = w.file.Path()
	}
	if w.lastErr != nil {
		s.LastError = w.lastErr.Error()
	}

	w.mu.Lock()
	s.Version = w.snapshot.Version + 1
	w.snapshot = s
	w.mu.Unlock()

	if w.notifier != nil {
		w.notifier.Broadcast()
	}
}
