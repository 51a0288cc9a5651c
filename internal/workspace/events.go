package workspace

import "github.com/leapstack-labs/memristor/internal/render"

// Event is something the surrounding application reports to the workspace.
type Event interface {
	eventName() string
}

// FileOpened selects the source file that backs the preview.
type FileOpened struct {
	Path string
}

// DirectoryOpened loads a project directory into the tree.
type DirectoryOpened struct {
	Path string
}

// ToggleExpand flips the expansion of one tree node.
type ToggleExpand struct {
	ID string
}

// ContentEdited reports that the open file changed on disk.
type ContentEdited struct{}

// PreviewRequested asks for a compile without an edit.
type PreviewRequested struct{}

// CompileCompleted carries a finished compile cycle.
type CompileCompleted struct {
	Outcome render.Outcome
}

// retryDue fires when a debounced request becomes eligible.
type retryDue struct{}

func (FileOpened) eventName() string       { return "file_opened" }
func (DirectoryOpened) eventName() string  { return "directory_opened" }
func (ToggleExpand) eventName() string     { return "toggle_expand" }
func (ContentEdited) eventName() string    { return "content_edited" }
func (PreviewRequested) eventName() string { return "preview_requested" }
func (CompileCompleted) eventName() string { return "compile_completed" }
func (retryDue) eventName() string         { return "retry_due" }
