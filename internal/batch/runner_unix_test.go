//go:build unix

package batch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/psantana5/subproc/internal/cgroups"
	"github.com/psantana5/subproc/internal/console"
	"github.com/psantana5/subproc/internal/process"
)

func noInterrupt() error { return nil }

func newTestRunner(t *testing.T, cfg Config) *Runner {
	t.Helper()
	if cfg.LogDir == "" {
		cfg.LogDir = t.TempDir()
	}
	if cfg.Interrupt == nil {
		cfg.Interrupt = noInterrupt
	}
	cfg.PollInterval = 10 * time.Millisecond
	r := NewRunner(cfg, nil)
	// An empty directory is not a cgroup v2 root, so limits are skipped.
	r.Cgroups = cgroups.NewAt(t.TempDir(), nil)
	return r
}

func mustParse(t *testing.T, data string) []Job {
	t.Helper()
	jobs, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return jobs
}

func TestRun(t *testing.T) {
	jobs := mustParse(t, `
jobs:
  - name: ok
    command: sh -c 'echo "$GREETING"'
    env: {GREETING: hi}
  - name: fail
    argv: [sh, -c, "exit 3"]
  - name: slow
    argv: [sleep, "10"]
    timeout: 200ms
    limits: {memory_max_mb: 64}
`)
	var out bytes.Buffer
	r := newTestRunner(t, Config{Jobs: 3})
	r.Console = console.NewWriter(&out)

	results, err := r.Run(context.Background(), jobs)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, expected 3", len(results))
	}

	want := []process.Status{process.Success, process.Failure(3), process.Timeout}
	for i, res := range results {
		if res.Name != jobs[i].Name {
			t.Errorf("result %d is %q, expected %q", i, res.Name, jobs[i].Name)
		}
		if res.Status != want[i] {
			t.Errorf("%s: status = %v, expected %v", res.Name, res.Status, want[i])
		}
	}
	if results[2].Duration > 5*time.Second {
		t.Errorf("timeout job ran for %v", results[2].Duration)
	}

	log, err := os.ReadFile(results[0].LogPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	for _, line := range []string{"hi", "*** result: Success"} {
		if !strings.Contains(string(log), line) {
			t.Errorf("log missing %q:\n%s", line, log)
		}
	}
	if filepath.Base(results[1].LogPath) != "fail.log" {
		t.Errorf("log path = %q, expected fail.log", results[1].LogPath)
	}

	for _, want := range []string{"ok ... Success", "fail ... Failure(3)", "slow ... Timeout"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("console missing %q:\n%s", want, out.String())
		}
	}
	if r.Failures.Count() != 2 {
		t.Errorf("failures = %d, expected 2", r.Failures.Count())
	}
}

func TestRun_SpawnErrorContinues(t *testing.T) {
	jobs := mustParse(t, `
jobs:
  - {name: missing, argv: [/nonexistent/subproc-test]}
  - {name: after, argv: ["true"]}
`)
	r := newTestRunner(t, Config{Jobs: 1})

	results, err := r.Run(context.Background(), jobs)
	var spawnErr *process.SpawnError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("error = %v, expected a SpawnError", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, expected 2", len(results))
	}
	if results[0].Outcome() != "error" {
		t.Errorf("missing: outcome = %q, expected error", results[0].Outcome())
	}
	if !results[1].OK() {
		t.Errorf("after: %+v, expected success", results[1])
	}
}

func TestRun_Interrupted(t *testing.T) {
	jobs := mustParse(t, `
jobs:
  - {name: first, argv: [sleep, "10"]}
  - {name: second, argv: [sleep, "10"]}
`)
	var raised atomic.Bool
	cfg := Config{
		Jobs: 1,
		Interrupt: func() error {
			if raised.Load() {
				return process.ErrInterrupted
			}
			return nil
		},
	}
	r := newTestRunner(t, cfg)
	time.AfterFunc(200*time.Millisecond, func() { raised.Store(true) })

	start := time.Now()
	results, err := r.Run(context.Background(), jobs)
	if !errors.Is(err, process.ErrInterrupted) {
		t.Fatalf("error = %v, expected ErrInterrupted", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Run took %v after interrupt", elapsed)
	}
	if len(results) != 1 || results[0].Name != "first" {
		t.Fatalf("results = %+v, expected only the first job", results)
	}
	if results[0].Outcome() != "error" {
		t.Errorf("outcome = %q, expected error", results[0].Outcome())
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	jobs := mustParse(t, `
jobs:
  - {name: long, argv: [sleep, "10"]}
`)
	r := newTestRunner(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	_, err := r.Run(ctx, jobs)
	if !errors.Is(err, process.ErrInterrupted) {
		t.Fatalf("error = %v, expected ErrInterrupted", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, expected to keep context.Canceled", err)
	}
}

func TestRun_DefaultTimeout(t *testing.T) {
	jobs := mustParse(t, `
jobs:
  - {name: slow, argv: [sleep, "10"]}
`)
	r := newTestRunner(t, Config{Timeout: 100 * time.Millisecond})
	results, err := r.Run(context.Background(), jobs)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !results[0].Status.IsTimeout() {
		t.Errorf("status = %v, expected Timeout", results[0].Status)
	}
}
