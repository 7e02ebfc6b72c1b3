package cmd

import (
	"errors"

	"github.com/psantana5/subproc/internal/process"
)

// Exit codes for outcomes that have no child exit code of their own.
const (
	exitTimeout     = 124
	exitInterrupted = 130
	exitSignalBase  = 128
)

// ExitCodeError carries the exit code subproc should terminate with. An
// ExitCodeError without Err prints nothing.
type ExitCodeError struct {
	Code int
	Err  error
}

func (e *ExitCodeError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitCodeError) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit code for an error returned by Execute.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitCodeError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.Is(err, process.ErrInterrupted) {
		return exitInterrupted
	}
	return 1
}

// statusExitCode mirrors a child's outcome the way a shell would.
func statusExitCode(s process.Status) int {
	switch s.Kind {
	case process.KindSuccess:
		return 0
	case process.KindFailure:
		return s.Code
	case process.KindTimeout:
		return exitTimeout
	case process.KindSignalled:
		return exitSignalBase + s.Signal
	default:
		return 1
	}
}
