package cli

import (
	"errors"
	"fmt"
)

// ExitError carries a process exit code out of a cobra RunE function.
//
// Commands report the failure to the user themselves, through the printer,
// and then return NewExitError(1). [RunWithConfig] turns the code into an
// [ExecuteResult] and [Execute] is the only place that calls os.Exit, so
// tests can run commands and assert on the code.
type ExitError struct {
	// Code is the exit code to return to the shell.
	Code int
}

// Error returns "exit status N", the same shape os/exec uses.
func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// NewExitError creates an [ExitError] with the given exit code.
func NewExitError(code int) *ExitError {
	return &ExitError{Code: code}
}

// IsExitError reports whether err is, or wraps, an [ExitError] and returns
// its code.
func IsExitError(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}
