// Package batch runs a list of jobs described in a YAML file, each as a
// supervised child process with its own log file.
package batch

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/mattn/go-shellwords"
	"gopkg.in/yaml.v3"

	"github.com/psantana5/subproc/internal/cgroups"
	"github.com/psantana5/subproc/internal/process"
)

// Job is one entry of a batch file. Exactly one of Argv or Command is set;
// Command is split like a shell would, without running a shell.
type Job struct {
	Name    string            `yaml:"name"`
	Argv    []string          `yaml:"argv"`
	Command string            `yaml:"command"`
	Env     map[string]string `yaml:"env"`
	Dir     string            `yaml:"dir"`
	Timeout string            `yaml:"timeout"`
	Limits  cgroups.Limits    `yaml:"limits"`

	argv    []string
	timeout time.Duration
}

type batchFile struct {
	Jobs []Job `yaml:"jobs"`
}

// Load reads and validates a batch file.
func Load(path string) ([]Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	jobs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return jobs, nil
}

// Parse decodes and validates batch file contents.
func Parse(data []byte) ([]Job, error) {
	var f batchFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid batch file: %w", err)
	}
	if len(f.Jobs) == 0 {
		return nil, errors.New("batch file has no jobs")
	}

	var result *multierror.Error
	seen := make(map[string]int, len(f.Jobs))
	for i := range f.Jobs {
		job := &f.Jobs[i]
		if job.Name == "" {
			job.Name = "job-" + uuid.NewString()[:8]
		}
		if prev, ok := seen[job.Name]; ok {
			result = multierror.Append(result, fmt.Errorf("job %d: name %q already used by job %d", i+1, job.Name, prev+1))
			continue
		}
		seen[job.Name] = i
		if err := job.resolve(); err != nil {
			result = multierror.Append(result, fmt.Errorf("job %q: %w", job.Name, err))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return f.Jobs, nil
}

func (j *Job) resolve() error {
	switch {
	case len(j.Argv) > 0 && j.Command != "":
		return errors.New("argv and command are mutually exclusive")
	case len(j.Argv) > 0:
		j.argv = j.Argv
	case j.Command != "":
		argv, err := shellwords.Parse(j.Command)
		if err != nil {
			return fmt.Errorf("invalid command: %w", err)
		}
		j.argv = argv
	}
	if len(j.argv) == 0 || j.argv[0] == "" {
		return errors.New("no command given")
	}

	if j.Timeout != "" {
		d, err := time.ParseDuration(j.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
		if d < 0 {
			return fmt.Errorf("invalid timeout: %s", j.Timeout)
		}
		j.timeout = d
	}
	return j.Limits.Validate()
}

// CommandLine returns the resolved argv.
func (j *Job) CommandLine() []string {
	return j.argv
}

// envVars returns the job's environment overrides in key order.
func (j *Job) envVars() []process.EnvVar {
	keys := make([]string, 0, len(j.Env))
	for k := range j.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	vars := make([]process.EnvVar, 0, len(keys))
	for _, k := range keys {
		vars = append(vars, process.EnvVar{Key: k, Value: j.Env[k]})
	}
	return vars
}
