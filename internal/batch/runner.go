package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/psantana5/subproc/internal/cgroups"
	"github.com/psantana5/subproc/internal/console"
	"github.com/psantana5/subproc/internal/interrupt"
	"github.com/psantana5/subproc/internal/logfile"
	"github.com/psantana5/subproc/internal/observe"
	"github.com/psantana5/subproc/internal/process"
	"github.com/psantana5/subproc/internal/report"
)

// Config controls how a batch is run.
type Config struct {
	// LogDir receives one log file per job.
	LogDir string

	// Jobs is the number of children run at once; <= 0 means 1.
	Jobs int

	// Timeout applies to jobs that do not set their own; zero means none.
	Timeout time.Duration

	PollInterval time.Duration

	// Jobserver, if set, is shared by every child.
	Jobserver process.Jobserver

	// Interrupt defaults to interrupt.Check.
	Interrupt func() error
}

// Runner runs batches. The exported collaborators may be replaced before the
// first call to Run.
type Runner struct {
	cfg    Config
	logger hclog.Logger

	Console  *console.Console
	Metrics  *report.Metrics
	Failures *report.FailureLog
	Cgroups  *cgroups.Manager
}

// NewRunner creates a runner with a silent console, fresh metrics and the
// system cgroup hierarchy.
func NewRunner(cfg Config, logger hclog.Logger) *Runner {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if cfg.Jobs <= 0 {
		cfg.Jobs = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = process.DefaultPollInterval
	}
	if cfg.Interrupt == nil {
		cfg.Interrupt = interrupt.Check
	}
	return &Runner{
		cfg:      cfg,
		logger:   logger.Named("batch"),
		Console:  console.NewWriter(io.Discard),
		Metrics:  report.NewMetrics(),
		Failures: report.NewFailureLog(50),
		Cgroups:  cgroups.New(logger),
	}
}

// Run executes jobs with bounded concurrency and returns a result for every
// job that was started, in job order.
//
// A job that cannot be spawned is recorded as an error result and the rest
// continue. An interrupt, or cancellation of ctx, terminates the running
// children, skips the jobs not yet started, and is returned as an error
// wrapping process.ErrInterrupted.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]*report.Result, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Jobs)

	// Runs never share a child, so a per-job error slot is enough.
	results := make([]*report.Result, len(jobs))
	jobErrs := make([]error, len(jobs))

	check := func() error {
		if err := r.cfg.Interrupt(); err != nil {
			return err
		}
		if gctx.Err() != nil {
			return context.Cause(gctx)
		}
		return nil
	}

	for i := range jobs {
		if err := check(); err != nil {
			r.logger.Debug("not starting remaining jobs", "remaining", len(jobs)-i)
			break
		}
		job := jobs[i]
		g.Go(func() error {
			if check() != nil {
				return nil
			}
			result, err := r.runJob(job, check)
			results[i] = result
			if errors.Is(err, process.ErrInterrupted) {
				return err
			}
			jobErrs[i] = err
			return nil
		})
	}
	waitErr := g.Wait()
	r.Console.Clear()

	started := make([]*report.Result, 0, len(results))
	for _, res := range results {
		if res != nil {
			started = append(started, res)
		}
	}

	if waitErr == nil {
		waitErr = r.cfg.Interrupt()
	}
	if waitErr == nil && ctx.Err() != nil {
		waitErr = context.Cause(ctx)
	}
	if waitErr != nil {
		if !errors.Is(waitErr, process.ErrInterrupted) {
			waitErr = fmt.Errorf("%w: %w", process.ErrInterrupted, waitErr)
		}
		return started, waitErr
	}

	var merr *multierror.Error
	for _, err := range jobErrs {
		if err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	return started, merr.ErrorOrNil()
}

func (r *Runner) runJob(job Job, check func() error) (*report.Result, error) {
	if job.argv == nil {
		if err := job.resolve(); err != nil {
			return nil, fmt.Errorf("job %q: %w", job.Name, err)
		}
	}
	logger := r.logger.With("job", job.Name)

	sink, err := logfile.Create(r.cfg.LogDir, job.Name)
	if err != nil {
		return nil, fmt.Errorf("job %q: %w", job.Name, err)
	}
	defer sink.Close()

	timeout := job.timeout
	if timeout == 0 {
		timeout = r.cfg.Timeout
	}
	opts := process.Options{
		Argv:      job.argv,
		Env:       job.envVars(),
		Dir:       job.Dir,
		Timeout:   timeout,
		Jobserver: r.cfg.Jobserver,
		Interrupt: check,
	}

	timing := observe.NewTiming()
	r.Console.Started(job.Name)
	r.Metrics.IncrStarted()

	status, pid, err := r.supervise(logger, job, opts, sink)
	var result *report.Result
	if err != nil {
		sink.Message(fmt.Sprintf("error: %v", err))
		result = report.NewErrorResult(job.Name, job.argv, timing, err, sink.Path())
		r.Console.Failed(job.Name, err)
	} else {
		result = report.NewResult(job.Name, job.argv, pid, timing, status, sink.Path())
		r.Console.Finished(job.Name, status, result.Duration)
	}
	r.Metrics.RecordResult(result)
	r.Failures.Record(result)
	result.LogSummary(logger)
	return result, err
}

// supervise starts the child, confines it, and polls it to completion.
func (r *Runner) supervise(logger hclog.Logger, job Job, opts process.Options, sink *logfile.LogFile) (process.Status, int, error) {
	p, err := process.Start(opts, sink)
	if err != nil {
		return process.Status{}, 0, err
	}
	pid := p.PID()

	cgroup := r.confine(logger, job, pid)
	defer func() {
		if err := r.Cgroups.Delete(cgroup); err != nil {
			logger.Debug("failed to remove cgroup", "path", cgroup, "error", err)
		}
	}()

	for {
		status, done, err := p.Poll()
		if err != nil {
			r.checkGone(logger, pid)
			return process.Status{}, pid, err
		}
		if done {
			sink.Message(fmt.Sprintf("result: %s", status))
			if status.IsTimeout() {
				r.checkGone(logger, pid)
			}
			return status, pid, nil
		}
		r.Console.Tick()
		time.Sleep(r.cfg.PollInterval)
	}
}

// confine places the child into a cgroup with the job's limits. Failures only
// cost the limits, never the job.
func (r *Runner) confine(logger hclog.Logger, job Job, pid int) string {
	if job.Limits.IsZero() {
		return ""
	}
	path, err := r.Cgroups.Create(job.Name)
	if err != nil || path == "" {
		logger.Debug("running without cgroup limits", "error", err)
		return ""
	}
	if err := r.Cgroups.Join(path, pid); err != nil {
		logger.Warn("failed to join cgroup", "path", path, "error", err)
		return path
	}
	if err := r.Cgroups.Apply(path, job.Limits); err != nil {
		logger.Warn("failed to apply cgroup limits", "path", path, "error", err)
	}
	return path
}

func (r *Runner) checkGone(logger hclog.Logger, pid int) {
	if observe.Alive(pid) {
		logger.Warn("terminated child is still visible", "pid", pid)
	}
}
