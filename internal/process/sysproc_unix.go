//go:build unix

package process

import (
	"errors"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setProcessGroup makes the child the leader of a new process group whose id
// is its own pid, so the whole group can be signalled later.
func setProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
	cmd.SysProcAttr.Pgid = 0
}

// terminateTree sends SIGTERM to the process group led by proc.
func terminateTree(proc *os.Process) error {
	pid := proc.Pid
	// kill(0) and kill(-1) would hit the caller's group or every process.
	if pid <= 1 {
		return &TerminateError{Pid: pid, Err: errors.New("invalid process group id")}
	}
	return signalError(pid, signalGroup(-pid, unix.SIGTERM))
}

// signalGroup delivers a signal; a negative pid addresses a process group.
var signalGroup = unix.Kill

// signalError classifies the result of signalling the group led by pid.
func signalError(pid int, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, unix.ESRCH):
		// Probably already gone.
		return nil
	case permissionMeansGone && errors.Is(err, unix.EPERM):
		return nil
	default:
		return &TerminateError{Pid: pid, Err: err}
	}
}

// exitSignal returns the signal that killed the child, if any.
func exitSignal(state *os.ProcessState) (int, bool) {
	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return 0, false
	}
	return int(ws.Signal()), true
}
