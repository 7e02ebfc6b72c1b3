package cmd

import (
	"context"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/psantana5/subproc/internal/config"
	"github.com/psantana5/subproc/internal/interrupt"
	"github.com/psantana5/subproc/internal/logging"
)

var (
	cfgFile string
	v       = config.New()
	cfg     *config.Config
	logger  hclog.Logger = hclog.NewNullLogger()
)

// flagKeys maps config keys to the flag names that can set them.
var flagKeys = map[string]string{
	"log_level":        "log-level",
	"log_json":         "log-json",
	"log_dir":          "log-dir",
	"output":           "output",
	"timeout":          "timeout",
	"poll_interval":    "poll-interval",
	"jobs":             "jobs",
	"jobserver_tokens": "jobserver",
	"metrics_addr":     "metrics-addr",
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "subproc",
	Short: "Run and supervise child processes",
	Long: `subproc launches commands as supervised children: output goes to a log
file, a timeout and Ctrl-C are honored, and on termination the child's whole
process group is stopped and reaped before subproc returns.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.subproc/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "warn", "diagnostic log level: trace, debug, info, warn, error, off")
	rootCmd.PersistentFlags().Bool("log-json", false, "write diagnostic logs as JSON")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "output format: table, json or yaml")
}

// initConfig reads the config file and environment, binds the flags of the
// command being run, and sets up logging and interrupt handling.
func initConfig(cmd *cobra.Command, args []string) error {
	if err := config.ReadFile(v, cfgFile); err != nil {
		return err
	}
	bindFlags(cmd.Flags())

	c, err := config.Load(v)
	if err != nil {
		return err
	}
	cfg = c

	logger = logging.New(logging.Options{
		Name:   "subproc",
		Level:  cfg.LogLevel,
		JSON:   cfg.LogJSON,
		Output: cmd.ErrOrStderr(),
	})
	logging.SetDefault(logger)
	interrupt.Install()
	return nil
}

func bindFlags(flags *pflag.FlagSet) {
	for key, name := range flagKeys {
		if f := flags.Lookup(name); f != nil {
			v.BindPFlag(key, f)
		}
	}
}
