// Package state records compile history in SQLite.
package state

import (
	"context"
	"errors"
	"time"
)

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = errors.New("run not found")

// RunStatus is the lifecycle state of a compile run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusDiscarded RunStatus = "discarded"
)

// Run is one recorded compile cycle.
type Run struct {
	ID          string     `json:"id"`
	Cycle       uint64     `json:"cycle"`
	SourcePath  string     `json:"source_path"`
	Status      RunStatus  `json:"status"`
	PageCount   int        `json:"page_count"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Duration returns how long the run took, or zero while it is running.
func (r *Run) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// RunStart describes a run being created.
type RunStart struct {
	ID         string
	Cycle      uint64
	SourcePath string
	StartedAt  time.Time
}

// Store persists compile runs.
type Store interface {
	CreateRun(ctx context.Context, start RunStart) (*Run, error)
	CompleteRun(ctx context.Context, id string, status RunStatus, pages int, errMsg string) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	Close() error
}
