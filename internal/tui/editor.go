package tui

import (
	"errors"
	"os"
	"os/exec"
)

// ErrNoEditor is returned when neither $EDITOR nor $VISUAL is set and no
// common editor is on PATH.
var ErrNoEditor = errors.New("no editor found: set $EDITOR environment variable")

var fallbackEditors = []string{"nvim", "vim", "vi", "nano"}

// editorCommand returns the command that opens path in the user's editor.
func editorCommand(path string) (*exec.Cmd, error) {
	editor := findEditor()
	if editor == "" {
		return nil, ErrNoEditor
	}
	return exec.Command(editor, path), nil //nolint:gosec // editor comes from the user's environment
}

func findEditor() string {
	if editor := os.Getenv("EDITOR"); editor != "" {
		return editor
	}
	if visual := os.Getenv("VISUAL"); visual != "" {
		return visual
	}
	for _, editor := range fallbackEditors {
		if path, err := exec.LookPath(editor); err == nil {
			return path
		}
	}
	return ""
}
