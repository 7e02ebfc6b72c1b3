package observe

import (
	"context"
	"slices"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Alive reports whether pid refers to a running process. Zombies (exited but
// not yet reaped) count as not alive.
func Alive(pid int) bool {
	return AliveWithContext(context.Background(), pid)
}

// AliveWithContext is Alive with a context for the underlying OS queries.
func AliveWithContext(ctx context.Context, pid int) bool {
	if pid <= 0 {
		return false
	}
	exists, err := process.PidExistsWithContext(ctx, int32(pid))
	if err != nil || !exists {
		return false
	}
	proc, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return false
	}
	status, err := proc.StatusWithContext(ctx)
	if err != nil {
		// Exists but unreadable; assume it is running.
		return true
	}
	return !slices.Contains(status, process.Zombie)
}

// WaitGone polls until pid is no longer alive or the timeout passes. It
// reports whether the process is gone.
func WaitGone(pid int, timeout, interval time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if !Alive(pid) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(interval)
	}
}
