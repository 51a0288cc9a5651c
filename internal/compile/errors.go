package compile

import "fmt"

// ToolNotInstalledError reports that the compiler binary could not be resolved.
type ToolNotInstalledError struct {
	Binary string
	Err    error
}

func (e *ToolNotInstalledError) Error() string {
	return fmt.Sprintf("compiler %q not found; install typst or set compiler.binary", e.Binary)
}

func (e *ToolNotInstalledError) Unwrap() error {
	return e.Err
}

// CompilationFailedError reports a non-zero compiler exit. Message holds the
// compiler's diagnostic output and may be empty.
type CompilationFailedError struct {
	Message  string
	ExitCode int
}

func (e *CompilationFailedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("compilation failed (exit code %d)", e.ExitCode)
	}
	return fmt.Sprintf("compilation failed (exit code %d): %s", e.ExitCode, e.Message)
}

// IOFailureError reports that the compiler could not be started or fed its input.
type IOFailureError struct {
	Op  string
	Err error
}

func (e *IOFailureError) Error() string {
	return fmt.Sprintf("compiler %s: %v", e.Op, e.Err)
}

func (e *IOFailureError) Unwrap() error {
	return e.Err
}
