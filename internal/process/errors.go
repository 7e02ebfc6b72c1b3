package process

import (
	"fmt"
	"os"
	"strings"

	"github.com/psantana5/subproc/internal/interrupt"
)

// ErrInterrupted is wrapped by the error Poll and Run return when the
// interrupt flag was observed. It is the same sentinel the interrupt package
// raises.
var ErrInterrupted = interrupt.ErrInterrupted

// SpawnError means the OS refused to create the child process.
type SpawnError struct {
	Argv []string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn %s: %v", strings.Join(e.Argv, " "), e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// TerminateError means the termination request could not be delivered for a
// reason other than the target already being gone.
type TerminateError struct {
	Pid int
	Err error
}

func (e *TerminateError) Error() string {
	return fmt.Sprintf("failed to terminate child %d: %v", e.Pid, e.Err)
}

func (e *TerminateError) Unwrap() error {
	return e.Err
}

// ExitError is returned by CommandOutput when the command exits unsuccessfully.
type ExitError struct {
	Argv  []string
	State *os.ProcessState
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("child failed with %s: %q", e.State, e.Argv)
}

// OutputDecodeError is returned by CommandOutput when stdout is not UTF-8.
type OutputDecodeError struct {
	Argv   []string
	Output []byte
}

func (e *OutputDecodeError) Error() string {
	return fmt.Sprintf("child output is not UTF-8: %q", e.Argv)
}
