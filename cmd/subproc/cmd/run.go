package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/psantana5/subproc/internal/console"
	"github.com/psantana5/subproc/internal/logfile"
	"github.com/psantana5/subproc/internal/observe"
	"github.com/psantana5/subproc/internal/process"
	"github.com/psantana5/subproc/internal/report"
)

var (
	runDir  string
	runEnv  []string
	runName string
)

var runCmd = &cobra.Command{
	Use:   "run [flags] [--] command [args...]",
	Short: "Run one command under supervision",
	Long: `Run launches a command with stdin closed and stdout and stderr appended to a
log file, then waits for it. When the timeout expires or subproc is
interrupted, the command's process group is terminated and reaped.

subproc exits with the command's exit code, 124 on timeout, 128+N when the
command was killed by signal N, and 130 when interrupted.

Example:
  subproc run -- make -j8
  subproc run --timeout 30s --env RUST_BACKTRACE=1 -- cargo test`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().SetInterspersed(false)
	runCmd.Flags().Duration("timeout", 0, "terminate the command after this long (0 = no limit)")
	runCmd.Flags().Duration("poll-interval", process.DefaultPollInterval, "how often to check on the command")
	runCmd.Flags().String("log-dir", "", "directory for the log file (default ./subproc-logs)")
	runCmd.Flags().Int("jobserver", 0, "provide a make jobserver with this many tokens (0 = pass through an inherited one)")
	runCmd.Flags().StringVar(&runDir, "dir", "", "working directory for the command")
	runCmd.Flags().StringArrayVarP(&runEnv, "env", "e", nil, "set an environment variable, KEY=VALUE (repeatable)")
	runCmd.Flags().StringVar(&runName, "name", "", "name for the run and its log file (default: the program name)")
}

func runRun(cmd *cobra.Command, args []string) error {
	env, err := parseEnv(runEnv)
	if err != nil {
		return err
	}
	name := runName
	if name == "" {
		name = filepath.Base(args[0])
	}

	sink, err := logfile.Create(cfg.LogDirectory(), name)
	if err != nil {
		return err
	}
	defer sink.Close()

	js, closeJobserver, err := openJobserver(cfg.JobserverTokens)
	if err != nil {
		return err
	}
	defer closeJobserver()

	con := newConsole(cmd)
	con.Started(name)
	timing := observe.NewTiming()

	status, err := process.Run(process.Options{
		Argv:         args,
		Env:          env,
		Dir:          runDir,
		Timeout:      cfg.Timeout,
		Jobserver:    js,
		PollInterval: cfg.PollInterval,
	}, sink, con)

	var result *report.Result
	if err != nil {
		sink.Message(fmt.Sprintf("error: %v", err))
		con.Failed(name, err)
		result = report.NewErrorResult(name, args, timing, err, sink.Path())
	} else {
		con.Finished(name, status, timing.Duration())
		result = report.NewResult(name, args, 0, timing, status, sink.Path())
	}
	result.LogSummary(logger)

	if cfg.Output != "table" {
		if werr := report.Write(cmd.OutOrStdout(), cfg.Output, []*report.Result{result}); werr != nil {
			return werr
		}
	}
	if err != nil {
		return err
	}
	if code := statusExitCode(status); code != 0 {
		return &ExitCodeError{Code: code}
	}
	return nil
}

func parseEnv(pairs []string) ([]process.EnvVar, error) {
	vars := make([]process.EnvVar, 0, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --env %q, expected KEY=VALUE", pair)
		}
		vars = append(vars, process.EnvVar{Key: key, Value: value})
	}
	return vars, nil
}

// newConsole draws progress on stderr, with a spinner when it is a terminal.
func newConsole(cmd *cobra.Command) *console.Console {
	if f, ok := cmd.ErrOrStderr().(*os.File); ok {
		return console.New(f)
	}
	return console.NewWriter(cmd.ErrOrStderr())
}
