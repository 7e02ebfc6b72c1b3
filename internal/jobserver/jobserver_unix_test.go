//go:build unix

package jobserver

import (
	"errors"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sys/unix"
)

func TestParseAuth(t *testing.T) {
	tests := []struct {
		flags    string
		expected string
		ok       bool
	}{
		{"-j --jobserver-auth=3,4", "3,4", true},
		{"-j --jobserver-fds=5,6", "5,6", true},
		{"--jobserver-fds=3,4 --jobserver-auth=fifo:/tmp/js", "fifo:/tmp/js", true},
		{"-k -j8", "", false},
		{"--jobserver-auth=", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.flags, func(t *testing.T) {
			got, ok := parseAuth(tt.flags)
			if got != tt.expected || ok != tt.ok {
				t.Errorf("parseAuth(%q) = (%q, %v), expected (%q, %v)", tt.flags, got, ok, tt.expected, tt.ok)
			}
		})
	}
}

func TestNew_RejectsZeroTokens(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatal("New(0) should fail")
	}
}

func TestConfigure_PassesTokensToChild(t *testing.T) {
	client, err := New(4)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer client.Close()

	cmd := exec.Command("sh", "-c", `echo "$MAKEFLAGS"; head -c 3 <&3 | wc -c`)
	if err := client.Configure(cmd); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if len(cmd.ExtraFiles) != 2 {
		t.Fatalf("ExtraFiles = %d, expected 2", len(cmd.ExtraFiles))
	}
	if !slices.Contains(cmd.Env, "CARGO_MAKEFLAGS=-j --jobserver-fds=3,4 --jobserver-auth=3,4") {
		t.Fatalf("CARGO_MAKEFLAGS not set: %v", cmd.Env)
	}

	out, err := cmd.Output()
	if err != nil {
		t.Fatalf("child failed: %v", err)
	}
	lines := strings.Fields(string(out))
	if len(lines) == 0 || lines[len(lines)-1] != "3" {
		t.Fatalf("child read tokens %q, expected 3", out)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("CARGO_MAKEFLAGS", "")
	t.Setenv("MFLAGS", "")
	t.Setenv("MAKEFLAGS", "-k")
	if _, err := FromEnv(); !errors.Is(err, ErrNotAdvertised) {
		t.Fatalf("FromEnv() = %v, expected ErrNotAdvertised", err)
	}

	fifo := filepath.Join(t.TempDir(), "jobserver")
	if err := unix.Mkfifo(fifo, 0600); err != nil {
		t.Fatalf("Mkfifo failed: %v", err)
	}
	t.Setenv("MAKEFLAGS", "-j --jobserver-auth=fifo:"+fifo)
	client, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	defer client.Close()

	cmd := exec.Command("true")
	if err := client.Configure(cmd); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if len(cmd.ExtraFiles) != 0 {
		t.Fatalf("fifo mode must not pass fds, got %d", len(cmd.ExtraFiles))
	}
	want := "MAKEFLAGS=-j --jobserver-auth=fifo:" + fifo
	if !slices.Contains(cmd.Env, want) {
		t.Fatalf("MAKEFLAGS not advertised: %v", cmd.Env)
	}
}

func TestFromEnv_ClosedFds(t *testing.T) {
	t.Setenv("CARGO_MAKEFLAGS", "-j --jobserver-auth=900,901")
	if _, err := FromEnv(); err == nil {
		t.Fatal("FromEnv should reject fds that are not open")
	}
}

func TestConfigure_AfterClose(t *testing.T) {
	client, err := New(2)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	client.Close()
	if err := client.Configure(exec.Command("true")); err == nil {
		t.Fatal("Configure after Close should fail")
	}
}

func TestClose_ReportsHandleErrors(t *testing.T) {
	c, err := New(2)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	// Closing the read end early makes the client's own Close of it fail.
	c.read.Close()

	err = c.Close()
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		t.Fatalf("Close error = %v, expected *multierror.Error", err)
	}
	if len(merr.Errors) != 1 {
		t.Errorf("got %d errors, expected 1: %v", len(merr.Errors), merr)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close = %v, expected nil", err)
	}
}

func TestClose_Clean(t *testing.T) {
	c, err := New(3)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close = %v, expected nil", err)
	}
}
