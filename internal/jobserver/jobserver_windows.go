//go:build windows

package jobserver

import (
	"errors"
	"os/exec"
)

// ErrUnsupported is returned on Windows, where the jobserver uses named
// semaphores rather than inherited pipes.
var ErrUnsupported = errors.New("jobserver is not supported on windows")

// New is not supported on Windows.
func New(tokens int) (*Client, error) {
	return nil, ErrUnsupported
}

func inheritFds(rfd, wfd int) (*Client, error) {
	return nil, ErrUnsupported
}

// Configure is not supported on Windows.
func (c *Client) Configure(cmd *exec.Cmd) error {
	return ErrUnsupported
}
