package cli

import (
	"errors"
	"fmt"
)

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// TestFailureError reports failed test cases. The failures themselves have
// already been printed.
type TestFailureError struct {
	Failed int
	Total  int
}

func (e *TestFailureError) Error() string {
	return fmt.Sprintf("%d of %d test cases failed", e.Failed, e.Total)
}

// ExitCode returns the process exit code for an error returned by a command:
// 0 for nil, 2 for an invalid library or config, and 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var invalid *InvalidInputError
	if errors.As(err, &invalid) {
		return 2
	}
	return 1
}

// InvalidInputError marks an error caused by a library, fixture or config
// file that could not be loaded.
type InvalidInputError struct {
	Path string
	Err  error
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input %s: %v", e.Path, e.Err)
}

func (e *InvalidInputError) Unwrap() error {
	return e.Err
}
