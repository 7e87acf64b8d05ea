package cmd

import (
	"errors"
	"fmt"
)

// Process exit codes
const (
	ExitOK      = 0
	ExitFailure = 1 // Pipeline failure, including a held lock
	ExitUsage   = 2 // Bad flags or configuration
	ExitStale   = 3 // status --exit-code found the install out of date
)

// ExitError carries a process exit code out of a command.
type ExitError struct {
	Code int
	Err  error
	// Silent means the failure was already reported to the user.
	Silent bool
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps an Execute error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// ShouldReport reports whether main still needs to print err.
func ShouldReport(err error) bool {
	if err == nil {
		return false
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return !exitErr.Silent && exitErr.Err != nil
	}
	return true
}

func usageError(err error) error {
	return &ExitError{Code: ExitUsage, Err: err}
}
