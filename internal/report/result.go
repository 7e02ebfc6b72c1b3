package report

import (
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/psantana5/subproc/internal/observe"
	"github.com/psantana5/subproc/internal/process"
)

// Result is the immutable record of one run. Set once, never change.
type Result struct {
	// Identity
	Name string   `json:"name" yaml:"name"`
	Argv []string `json:"argv" yaml:"argv"`
	PID  int      `json:"pid,omitempty" yaml:"pid,omitempty"`

	// Timing
	StartTime time.Time     `json:"start_time" yaml:"start_time"`
	EndTime   time.Time     `json:"end_time" yaml:"end_time"`
	Duration  time.Duration `json:"duration_ns" yaml:"duration"`

	// Outcome: exactly one of Status or Error is meaningful.
	Status process.Status `json:"status" yaml:"status"`
	Error  string         `json:"error,omitempty" yaml:"error,omitempty"`

	LogPath string `json:"log_path,omitempty" yaml:"log_path,omitempty"`
}

// NewResult creates a result for a run that produced a Status.
func NewResult(name string, argv []string, pid int, timing *observe.Timing, status process.Status, logPath string) *Result {
	timing.Complete()
	return &Result{
		Name:      name,
		Argv:      argv,
		PID:       pid,
		StartTime: timing.StartedAt,
		EndTime:   timing.CompletedAt,
		Duration:  timing.Duration(),
		Status:    status,
		LogPath:   logPath,
	}
}

// NewErrorResult creates a result for a run that ended with an error, such
// as a spawn failure or an interrupt, instead of a Status.
func NewErrorResult(name string, argv []string, timing *observe.Timing, err error, logPath string) *Result {
	timing.Complete()
	return &Result{
		Name:      name,
		Argv:      argv,
		StartTime: timing.StartedAt,
		EndTime:   timing.CompletedAt,
		Duration:  timing.Duration(),
		Error:     err.Error(),
		LogPath:   logPath,
	}
}

// Outcome is the label used for metrics and tables.
func (r *Result) Outcome() string {
	if r.Error != "" {
		return "error"
	}
	return string(r.Status.Kind)
}

// OK reports whether the run succeeded.
func (r *Result) OK() bool {
	return r.Error == "" && r.Status.IsSuccess()
}

// LogSummary emits a one-line summary of the run.
func (r *Result) LogSummary(logger hclog.Logger) {
	args := []interface{}{
		"name", r.Name,
		"outcome", r.Outcome(),
		"runtime", r.Duration.Round(time.Millisecond),
		"log", r.LogPath,
	}
	if r.Error != "" {
		logger.Warn("run ended with error", append(args, "error", r.Error)...)
		return
	}
	args = append(args, "status", r.Status.String(), "pid", r.PID)
	if r.OK() {
		logger.Info("run finished", args...)
	} else {
		logger.Warn("run finished", args...)
	}
}
