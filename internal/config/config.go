// Package config loads settings from a YAML file, SUBPROC_* environment
// variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/spf13/viper"

	"github.com/psantana5/subproc/internal/logging"
)

// EnvPrefix is prepended to every key when read from the environment.
const EnvPrefix = "SUBPROC"

// Config holds every setting the commands use.
type Config struct {
	LogLevel        string        `mapstructure:"log_level"`
	LogJSON         bool          `mapstructure:"log_json"`
	LogDir          string        `mapstructure:"log_dir"`
	Timeout         time.Duration `mapstructure:"timeout"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	Jobs            int           `mapstructure:"jobs"`
	JobserverTokens int           `mapstructure:"jobserver_tokens"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	Output          string        `mapstructure:"output"`
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// SetDefaults registers the default for every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_json", false)
	v.SetDefault("log_dir", "")
	v.SetDefault("timeout", time.Duration(0))
	v.SetDefault("poll_interval", 50*time.Millisecond)
	v.SetDefault("jobs", defaultJobs())
	v.SetDefault("jobserver_tokens", 0)
	v.SetDefault("metrics_addr", "")
	v.SetDefault("output", "table")
}

// ReadFile reads cfgFile, or ~/.subproc/config.yaml when cfgFile is empty.
// A missing default file is not an error.
func ReadFile(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		v.AddConfigPath(filepath.Join(home, ".subproc"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.Timeout < 0:
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	case c.PollInterval <= 0:
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	case c.Jobs < 1:
		return fmt.Errorf("jobs must be at least 1, got %d", c.Jobs)
	case c.JobserverTokens < 0:
		return fmt.Errorf("jobserver_tokens must not be negative, got %d", c.JobserverTokens)
	}
	switch strings.ToLower(c.Output) {
	case "table", "json", "yaml", "yml":
	default:
		return fmt.Errorf("output must be table, json or yaml, got %q", c.Output)
	}
	return nil
}

func defaultJobs() int {
	n, err := cpu.Counts(true)
	if err != nil || n < 1 {
		return runtime.NumCPU()
	}
	return n
}

// LogDirectory returns LogDir, or the first writable default location when
// it is unset.
func (c *Config) LogDirectory() string {
	if c.LogDir != "" {
		return c.LogDir
	}
	return defaultLogDir()
}

func defaultLogDir() string {
	candidates := []string{}
	if wd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(wd, "subproc-logs"))
	}
	candidates = append(candidates, filepath.Join(os.TempDir(), "subproc-logs"))
	if dir := logging.WritableDir(candidates...); dir != "" {
		return dir
	}
	return os.TempDir()
}
