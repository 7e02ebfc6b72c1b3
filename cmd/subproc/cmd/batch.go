package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/psantana5/subproc/internal/batch"
	"github.com/psantana5/subproc/internal/process"
	"github.com/psantana5/subproc/internal/report"
)

var batchCmd = &cobra.Command{
	Use:   "batch FILE",
	Short: "Run the jobs listed in a YAML file",
	Long: `Batch runs every job in FILE as a supervised child, several at a time, each
with its own log file, and prints a summary when all have finished.

A batch file looks like:

  jobs:
    - name: unit
      command: go test ./...
      timeout: 10m
    - name: lint
      argv: [golangci-lint, run]
      env: {GOFLAGS: -mod=mod}
      limits: {memory_max_mb: 2048, cpu_weight: 50}

Ctrl-C terminates the running jobs and skips the rest. subproc exits 1 if any
job did not succeed and 130 when interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntP("jobs", "j", 0, "number of jobs to run at once (default: logical CPUs)")
	batchCmd.Flags().Duration("timeout", 0, "timeout for jobs that do not set one (0 = no limit)")
	batchCmd.Flags().Duration("poll-interval", process.DefaultPollInterval, "how often to check on each job")
	batchCmd.Flags().String("log-dir", "", "directory for job log files (default ./subproc-logs)")
	batchCmd.Flags().Int("jobserver", 0, "share a make jobserver with this many tokens between jobs (0 = pass through an inherited one)")
	batchCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address while running, e.g. :9090")
}

func runBatch(cmd *cobra.Command, args []string) error {
	jobs, err := batch.Load(args[0])
	if err != nil {
		return err
	}

	js, closeJobserver, err := openJobserver(cfg.JobserverTokens)
	if err != nil {
		return err
	}
	defer closeJobserver()

	runner := batch.NewRunner(batch.Config{
		LogDir:       cfg.LogDirectory(),
		Jobs:         cfg.Jobs,
		Timeout:      cfg.Timeout,
		PollInterval: cfg.PollInterval,
		Jobserver:    js,
	}, logger)
	runner.Console = newConsole(cmd)

	if cfg.MetricsAddr != "" {
		srv := report.Serve(cfg.MetricsAddr, runner.Metrics, runner.Failures, logger)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("metrics server shutdown failed", "error", err)
			}
		}()
	}

	results, runErr := runner.Run(cmd.Context(), jobs)
	if err := report.Write(cmd.OutOrStdout(), cfg.Output, results); err != nil {
		return err
	}
	if runErr != nil {
		if errors.Is(runErr, process.ErrInterrupted) {
			return &ExitCodeError{Code: exitInterrupted, Err: runErr}
		}
		return runErr
	}
	for _, r := range results {
		if !r.OK() {
			return &ExitCodeError{Code: 1}
		}
	}
	return nil
}
