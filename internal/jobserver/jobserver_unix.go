//go:build unix

package jobserver

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"
)

// New creates a jobserver allowing tokens concurrent jobs. The implicit
// token every process holds counts as one, so tokens-1 bytes go in the pipe.
func New(tokens int) (*Client, error) {
	if tokens < 1 {
		return nil, fmt.Errorf("jobserver needs at least 1 token, got %d", tokens)
	}
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create jobserver pipe: %w", err)
	}
	if n := tokens - 1; n > 0 {
		if _, err := w.Write(bytes.Repeat([]byte{'|'}, n)); err != nil {
			r.Close()
			w.Close()
			return nil, fmt.Errorf("failed to fill jobserver pipe: %w", err)
		}
	}
	return &Client{read: r, write: w, owned: true}, nil
}

func inheritFds(rfd, wfd int) (*Client, error) {
	for _, fd := range []int{rfd, wfd} {
		if _, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0); err != nil {
			return nil, fmt.Errorf("jobserver fd %d is not open: %w", fd, err)
		}
	}
	return &Client{
		read:  os.NewFile(uintptr(rfd), "jobserver-read"),
		write: os.NewFile(uintptr(wfd), "jobserver-write"),
	}, nil
}

// Configure passes the token pool to cmd and advertises it through
// MAKEFLAGS and CARGO_MAKEFLAGS.
func (c *Client) Configure(cmd *exec.Cmd) error {
	var auth string
	if c.fifo != "" {
		auth = c.auth(0, 0)
	} else {
		if c.read == nil || c.write == nil {
			return fmt.Errorf("jobserver is closed")
		}
		// ExtraFiles[i] becomes fd 3+i in the child.
		base := 3 + len(cmd.ExtraFiles)
		cmd.ExtraFiles = append(cmd.ExtraFiles, c.read, c.write)
		auth = c.auth(base, base+1)
	}

	if cmd.Env == nil {
		cmd.Env = os.Environ()
	}
	flags := makeflags(auth)
	cmd.Env = append(cmd.Env, "MAKEFLAGS="+flags, "CARGO_MAKEFLAGS="+flags)
	return nil
}
