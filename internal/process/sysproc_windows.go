//go:build windows

package process

import (
	"errors"
	"os"
	"os/exec"
)

// Windows has no process groups to join; descendants of the child are not
// reached by terminateTree.
func setProcessGroup(_ *exec.Cmd) {}

// terminateTree kills the child process directly.
func terminateTree(proc *os.Process) error {
	if err := proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return &TerminateError{Pid: proc.Pid, Err: err}
	}
	return nil
}

// exitSignal always fails: Windows exits always carry a code.
func exitSignal(_ *os.ProcessState) (int, bool) {
	return 0, false
}
