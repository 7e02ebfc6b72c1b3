// Package process launches a child command, supervises it cooperatively with
// a timeout and the global interrupt flag, and guarantees the child and its
// process group are terminated and reaped.
//
// On Unix the child runs as the leader of its own process group, so any
// grandchildren are signalled too when it is terminated. On Windows only the
// direct child is killed; its descendants may survive.
package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"

	"github.com/psantana5/subproc/internal/interrupt"
	"github.com/psantana5/subproc/internal/logging"
)

// DefaultPollInterval is how often Run checks whether the child finished.
const DefaultPollInterval = 50 * time.Millisecond

// TerminateGrace bounds the wait for a child whose termination request could
// not be delivered.
var TerminateGrace = 5 * time.Second

// LogSink receives the child's output and diagnostic messages about the run.
type LogSink interface {
	// OpenAppend returns a new handle appending to the sink. It is called
	// once for stdout and once for stderr.
	OpenAppend() (*os.File, error)

	// Message appends a line of diagnostic text.
	Message(msg string)
}

// Progress is ticked once per poll while waiting for the child.
type Progress interface {
	Tick()
}

// NoProgress is a Progress that does nothing.
var NoProgress Progress = noProgress{}

type noProgress struct{}

func (noProgress) Tick() {}

// Jobserver configures a command to take part in a build-concurrency token
// protocol before it is spawned.
type Jobserver interface {
	Configure(cmd *exec.Cmd) error
}

// EnvVar is an environment variable set for the child on top of the
// inherited environment.
type EnvVar struct {
	Key   string
	Value string
}

// Options describes a child to launch.
type Options struct {
	// Argv is the command line; Argv[0] is the executable.
	Argv []string

	Env []EnvVar

	// Dir is the working directory; empty means the caller's.
	Dir string

	// Timeout is the wall-clock limit; zero means none.
	Timeout time.Duration

	// Jobserver, if set, is configured onto the command before spawning.
	Jobserver Jobserver

	// Interrupt reports whether an interrupt was requested. Defaults to the
	// process-wide interrupt.Check.
	Interrupt func() error

	// PollInterval is the sleep between polls in Run.
	PollInterval time.Duration
}

// Process is a running child. It is owned by a single caller; Poll and
// Terminate must not be called concurrently.
type Process struct {
	cmd       *exec.Cmd
	start     time.Time
	timeout   time.Duration
	interrupt func() error
	logger    hclog.Logger

	// exited is closed by the waiter goroutine once cmd.Wait has reaped the
	// child; state and waitErr are only read after that.
	exited  chan struct{}
	state   *os.ProcessState
	waitErr error

	final      *Status
	terminated bool
}

// Run launches a child and waits for it to finish, watching for interrupts
// and the timeout while ticking progress. The result is also written to sink.
func Run(opts Options, sink LogSink, progress Progress) (Status, error) {
	if progress == nil {
		progress = NoProgress
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	p, err := Start(opts, sink)
	if err != nil {
		return Status{}, err
	}
	for {
		status, done, err := p.Poll()
		if err != nil {
			return Status{}, err
		}
		if done {
			sink.Message(fmt.Sprintf("result: %s", status))
			return status, nil
		}
		progress.Tick()
		time.Sleep(interval)
	}
}

// Start launches a child and returns a handle to it.
func Start(opts Options, sink LogSink) (*Process, error) {
	if len(opts.Argv) == 0 || opts.Argv[0] == "" {
		return nil, &SpawnError{Argv: opts.Argv, Err: errors.New("empty command")}
	}
	start := time.Now()
	logger := logging.Default().Named("process")

	quoted := ShellQuote(opts.Argv)
	sink.Message(quoted)
	logger.Debug("start process", "argv", quoted)

	cmd := exec.Command(opts.Argv[0], opts.Argv[1:]...)
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 {
		cmd.Env = os.Environ()
		for _, kv := range opts.Env {
			cmd.Env = append(cmd.Env, kv.Key+"="+kv.Value)
		}
	}

	// cmd.Stdin is left nil, so it will use the null device
	stdout, err := sink.OpenAppend()
	if err != nil {
		return nil, err
	}
	stderr, err := sink.OpenAppend()
	if err != nil {
		stdout.Close()
		return nil, err
	}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if opts.Jobserver != nil {
		if err := opts.Jobserver.Configure(cmd); err != nil {
			closeAll(logger, stdout, stderr)
			return nil, fmt.Errorf("failed to configure jobserver: %w", err)
		}
	}
	setProcessGroup(cmd)

	err = cmd.Start()
	// The child holds its own copies of the log handles.
	closeAll(logger, stdout, stderr)
	if err != nil {
		logger.Debug("spawn failed", "argv", quoted, "error", err)
		return nil, &SpawnError{Argv: opts.Argv, Err: err}
	}

	check := opts.Interrupt
	if check == nil {
		check = interrupt.Check
	}
	p := &Process{
		cmd:       cmd,
		start:     start,
		timeout:   opts.Timeout,
		interrupt: check,
		logger:    logger.With("pid", cmd.Process.Pid),
		exited:    make(chan struct{}),
	}
	go p.waitLoop()
	return p, nil
}

// waitLoop reaps the child exactly once.
func (p *Process) waitLoop() {
	err := p.cmd.Wait()
	p.state = p.cmd.ProcessState
	p.waitErr = err
	close(p.exited)
}

// PID returns the child's process id, which on Unix is also its process
// group id.
func (p *Process) PID() int {
	return p.cmd.Process.Pid
}

// Elapsed returns the time since the child was launched.
func (p *Process) Elapsed() time.Duration {
	return time.Since(p.start)
}

// Poll checks, without blocking, whether the child has finished. It returns
// done=false while the child is still running.
//
// Checks happen in a fixed order: the timeout, then the interrupt flag, then
// the child's exit. If the child exits in the same instant the timeout
// expires, the result may be Timeout even though it had already finished.
//
// An observed interrupt terminates the child and returns an error wrapping
// ErrInterrupted rather than a Status. Once a Status has been returned, later
// calls return the same Status.
func (p *Process) Poll() (Status, bool, error) {
	if p.final != nil {
		return *p.final, true, nil
	}

	if p.timeout > 0 && time.Since(p.start) > p.timeout {
		p.logger.Debug("timeout, terminating child process")
		if err := p.Terminate(); err != nil {
			return Status{}, false, err
		}
		return p.finish(Timeout), true, nil
	}

	if err := p.interrupt(); err != nil {
		p.logger.Debug("interrupted, terminating child process")
		if terr := p.Terminate(); terr != nil {
			return Status{}, false, terr
		}
		if !errors.Is(err, ErrInterrupted) {
			err = fmt.Errorf("%w: %w", ErrInterrupted, err)
		}
		return Status{}, false, err
	}

	select {
	case <-p.exited:
	default:
		return Status{}, false, nil
	}
	if p.state == nil {
		return Status{}, false, fmt.Errorf("failed to wait for child %d: %w", p.PID(), p.waitErr)
	}
	return p.finish(statusOf(p.state)), true, nil
}

func (p *Process) finish(s Status) Status {
	p.final = &s
	p.logger.Debug("child finished", "status", s.String(), "elapsed", time.Since(p.start))
	return s
}

// Terminate asks the child's whole process group to stop, then blocks until
// the child has exited and been reaped.
//
// A target that is already gone is not an error. If the request cannot be
// delivered the error is returned, but only after waiting up to
// TerminateGrace for the child to exit anyway; the background waiter still
// reaps it whenever it does. Calling Terminate again is a no-op.
func (p *Process) Terminate() error {
	if p.terminated {
		return nil
	}
	p.terminated = true
	logger := p.logger.Named("terminate")
	logger.Debug("terminating child process")

	// The group is signalled even when the leader has already been reaped:
	// descendants may still hold the group id, which keeps it from being reused.
	signalErr := terminateTree(p.cmd.Process)

	if signalErr != nil {
		logger.Warn("failed to terminate child", "error", signalErr)
		select {
		case <-p.exited:
		case <-time.After(TerminateGrace):
			logger.Warn("child still running after failed termination", "grace", TerminateGrace)
			return signalErr
		}
	} else {
		logger.Trace("wait for child after termination")
		<-p.exited
	}

	if p.state == nil {
		logger.Debug("failed to wait for child after termination", "error", p.waitErr)
	} else {
		logger.Debug("terminated child exit status", "state", p.state.String())
	}
	return signalErr
}

// statusOf classifies how a reaped child ended.
func statusOf(state *os.ProcessState) Status {
	if code := state.ExitCode(); code >= 0 {
		if code == 0 {
			return Success
		}
		return Failure(code)
	}
	if sig, ok := exitSignal(state); ok {
		return Signalled(sig)
	}
	return Other
}

func closeAll(logger hclog.Logger, files ...*os.File) {
	var result *multierror.Error
	for _, f := range files {
		if err := f.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		logger.Debug("failed to close log handles", "error", err)
	}
}
