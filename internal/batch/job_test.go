package batch

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/psantana5/subproc/internal/process"
)

func TestParse(t *testing.T) {
	data := []byte(`
jobs:
  - name: build
    command: make -j4 'CFLAGS=-O2 -g' all
    env:
      LANG: C
      CC: clang
    dir: /tmp
    timeout: 90s
    limits:
      memory_max_mb: 512
      cpu_weight: 50
  - argv: ["echo", "hello world"]
`)
	jobs, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("got %d jobs, expected 2", len(jobs))
	}

	build := jobs[0]
	if want := []string{"make", "-j4", "CFLAGS=-O2 -g", "all"}; !reflect.DeepEqual(build.CommandLine(), want) {
		t.Errorf("argv = %q, expected %q", build.CommandLine(), want)
	}
	if build.timeout != 90*time.Second {
		t.Errorf("timeout = %v, expected 90s", build.timeout)
	}
	if build.Limits.MemoryMaxMB != 512 || build.Limits.CPUWeight != 50 {
		t.Errorf("limits = %+v", build.Limits)
	}
	wantEnv := []process.EnvVar{{Key: "CC", Value: "clang"}, {Key: "LANG", Value: "C"}}
	if got := build.envVars(); !reflect.DeepEqual(got, wantEnv) {
		t.Errorf("env = %v, expected %v", got, wantEnv)
	}

	echo := jobs[1]
	if !strings.HasPrefix(echo.Name, "job-") || len(echo.Name) != len("job-")+8 {
		t.Errorf("generated name = %q, expected job-<8 chars>", echo.Name)
	}
	if want := []string{"echo", "hello world"}; !reflect.DeepEqual(echo.CommandLine(), want) {
		t.Errorf("argv = %q, expected %q", echo.CommandLine(), want)
	}
	if echo.timeout != 0 {
		t.Errorf("timeout = %v, expected none", echo.timeout)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"empty", "jobs: []", "no jobs"},
		{"not yaml", "jobs: [", "invalid batch file"},
		{"both argv and command", "jobs:\n  - argv: [\"true\"]\n    command: 'true'", "mutually exclusive"},
		{"no command", "jobs:\n  - name: nothing", "no command"},
		{"unterminated quote", "jobs:\n  - command: \"echo 'oops\"", "invalid command"},
		{"bad timeout", "jobs:\n  - argv: [\"true\"]\n    timeout: soon", "invalid timeout"},
		{"negative timeout", "jobs:\n  - argv: [\"true\"]\n    timeout: -1s", "invalid timeout"},
		{"duplicate name", "jobs:\n  - {name: a, argv: [\"true\"]}\n  - {name: a, argv: [\"false\"]}", "already used"},
		{"bad limits", "jobs:\n  - argv: [\"true\"]\n    limits: {cpu_weight: 99999}", "cpu weight"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.yaml")
	if err := os.WriteFile(path, []byte("jobs:\n  - name: one\n    argv: [\"true\"]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	jobs, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Name != "one" {
		t.Errorf("jobs = %+v", jobs)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
