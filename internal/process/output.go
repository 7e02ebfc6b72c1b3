package process

import (
	"errors"
	"os"
	"os/exec"
	"strings"
	"unicode/utf8"

	"github.com/psantana5/subproc/internal/logging"
)

// CommandOutput runs a short command to completion and returns its stdout.
// Stderr goes straight to the caller's stderr.
//
// There is no timeout, interrupt handling or progress ticking, and the whole
// output is held in memory: use it only for small, fast metadata queries.
func CommandOutput(argv []string, dir string) (string, error) {
	if len(argv) == 0 || argv[0] == "" {
		return "", &SpawnError{Argv: argv, Err: errors.New("empty command")}
	}
	logger := logging.Default().Named("command_output").With("argv", argv)

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Stderr = os.Stderr
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			logger.Error("child failed", "state", exitErr.ProcessState.String())
			return "", &ExitError{Argv: argv, State: exitErr.ProcessState}
		}
		return "", &SpawnError{Argv: argv, Err: err}
	}
	if !utf8.Valid(out) {
		return "", &OutputDecodeError{Argv: argv, Output: out}
	}
	stdout := string(out)
	logger.Debug("output", "stdout", strings.TrimSpace(stdout))
	return stdout, nil
}
