package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	c, err := Load(New())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, expected warn", c.LogLevel)
	}
	if c.PollInterval != 50*time.Millisecond {
		t.Errorf("PollInterval = %v, expected 50ms", c.PollInterval)
	}
	if c.Jobs < 1 {
		t.Errorf("Jobs = %d, expected at least 1", c.Jobs)
	}
	if c.Timeout != 0 {
		t.Errorf("Timeout = %v, expected none", c.Timeout)
	}
	if c.Output != "table" {
		t.Errorf("Output = %q, expected table", c.Output)
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "log_level: debug\ntimeout: 2m\njobs: 3\nlog_dir: /var/tmp/x\noutput: json\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	v := New()
	if err := ReadFile(v, path); err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	c, err := Load(v)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.LogLevel != "debug" || c.Timeout != 2*time.Minute || c.Jobs != 3 || c.Output != "json" {
		t.Errorf("config = %+v", c)
	}
	if c.LogDirectory() != "/var/tmp/x" {
		t.Errorf("LogDirectory() = %q", c.LogDirectory())
	}
}

func TestReadFileMissing(t *testing.T) {
	if err := ReadFile(New(), filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for an explicit missing config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SUBPROC_TIMEOUT", "1500ms")
	t.Setenv("SUBPROC_LOG_JSON", "true")
	t.Setenv("SUBPROC_JOBS", "7")

	c, err := Load(New())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Timeout != 1500*time.Millisecond {
		t.Errorf("Timeout = %v, expected 1.5s", c.Timeout)
	}
	if !c.LogJSON {
		t.Error("LogJSON = false, expected true")
	}
	if c.Jobs != 7 {
		t.Errorf("Jobs = %d, expected 7", c.Jobs)
	}
}

func TestValidate(t *testing.T) {
	valid := Config{PollInterval: time.Millisecond, Jobs: 1, Output: "table"}
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"valid", func(*Config) {}, ""},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, "timeout"},
		{"zero poll interval", func(c *Config) { c.PollInterval = 0 }, "poll_interval"},
		{"zero jobs", func(c *Config) { c.Jobs = 0 }, "jobs"},
		{"negative tokens", func(c *Config) { c.JobserverTokens = -1 }, "jobserver_tokens"},
		{"bad output", func(c *Config) { c.Output = "xml" }, "output"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := c.Validate()
			if tt.want == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, expected mention of %q", err, tt.want)
			}
		})
	}
}

func TestLogDirectoryDefault(t *testing.T) {
	t.Chdir(t.TempDir())
	c := Config{}
	dir := c.LogDirectory()
	if dir == "" {
		t.Fatal("expected a default log directory")
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("default log directory %q not created: %v", dir, err)
	}
}
