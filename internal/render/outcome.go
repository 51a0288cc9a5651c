package render

import (
	"time"

	"github.com/leapstack-labs/memristor/internal/artifact"
)

// Kind tags an Outcome.
type Kind int

// Outcome kinds. NoOp, Debounced and Pending are returned by RequestRender;
// Completed and Failed arrive on the completions channel.
const (
	OutcomeNoOp Kind = iota
	OutcomeDebounced
	OutcomePending
	OutcomeCompleted
	OutcomeFailed
)

func (k Kind) String() string {
	switch k {
	case OutcomeNoOp:
		return "noop"
	case OutcomeDebounced:
		return "debounced"
	case OutcomePending:
		return "pending"
	case OutcomeCompleted:
		return "completed"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Job is one compile cycle. It is created when the cycle starts and owns a
// snapshot of the source text, so later edits never leak into it.
type Job struct {
	Cycle      uint64    `json:"cycle"`
	ID         string    `json:"id"`
	SourcePath string    `json:"source_path"`
	Text       string    `json:"-"`
	Dir        string    `json:"dir"`
	Started    time.Time `json:"started"`
}

// Outcome is the result of a render request or of a finished cycle.
// Only the fields relevant to Kind are set.
type Outcome struct {
	Kind      Kind                `json:"kind"`
	Job       *Job                `json:"job,omitempty"`
	RetryAt   time.Time           `json:"retry_at,omitzero"`
	Artifacts []artifact.Artifact `json:"artifacts,omitempty"`
	Err       error               `json:"-"`
	Finished  time.Time           `json:"finished,omitzero"`
}

// Done reports whether the outcome ends a compile cycle.
func (o Outcome) Done() bool {
	return o.Kind == OutcomeCompleted || o.Kind == OutcomeFailed
}
