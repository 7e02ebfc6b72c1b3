// Package jobserver implements the client side of the GNU make jobserver
// protocol: a pipe (or named fifo) holding one byte per spare job token,
// advertised to children through MAKEFLAGS.
//
// This package only hands the token pool to children. It never acquires or
// releases tokens itself; the children do that for as long as they run.
package jobserver

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ErrNotAdvertised is returned by FromEnv when no jobserver is configured in
// the environment.
var ErrNotAdvertised = errors.New("no jobserver advertised in MAKEFLAGS")

// flagsVars are the environment variables that carry jobserver settings, in
// lookup order.
var flagsVars = []string{"CARGO_MAKEFLAGS", "MAKEFLAGS", "MFLAGS"}

// Client is a handle on a jobserver token pool.
type Client struct {
	// pipe mode
	read  *os.File
	write *os.File

	// fifo mode
	fifo string

	owned bool
}

// FromEnv adopts a jobserver advertised by a parent make.
func FromEnv() (*Client, error) {
	for _, name := range flagsVars {
		flags, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		auth, ok := parseAuth(flags)
		if !ok {
			continue
		}
		return fromAuth(auth)
	}
	return nil, ErrNotAdvertised
}

// parseAuth extracts the value of the last --jobserver-auth (or the older
// --jobserver-fds) option in a MAKEFLAGS string.
func parseAuth(flags string) (string, bool) {
	var auth string
	found := false
	for _, field := range strings.Fields(flags) {
		for _, prefix := range []string{"--jobserver-auth=", "--jobserver-fds="} {
			if v, ok := strings.CutPrefix(field, prefix); ok {
				auth = v
				found = true
			}
		}
	}
	return auth, found && auth != ""
}

func fromAuth(auth string) (*Client, error) {
	if path, ok := strings.CutPrefix(auth, "fifo:"); ok {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("jobserver fifo %s: %w", path, err)
		}
		return &Client{fifo: path}, nil
	}

	r, w, ok := strings.Cut(auth, ",")
	if !ok {
		return nil, fmt.Errorf("malformed jobserver auth %q", auth)
	}
	rfd, err := strconv.Atoi(r)
	if err != nil || rfd < 0 {
		return nil, fmt.Errorf("malformed jobserver read fd %q", r)
	}
	wfd, err := strconv.Atoi(w)
	if err != nil || wfd < 0 {
		return nil, fmt.Errorf("malformed jobserver write fd %q", w)
	}
	return inheritFds(rfd, wfd)
}

// auth returns the --jobserver-auth value children should see, given the
// child fd numbers the pipe ends will have.
func (c *Client) auth(readFd, writeFd int) string {
	if c.fifo != "" {
		return "fifo:" + c.fifo
	}
	return fmt.Sprintf("%d,%d", readFd, writeFd)
}

// Close releases the client's handles. Children already spawned keep their
// own copies.
func (c *Client) Close() error {
	var result *multierror.Error
	for _, f := range []*os.File{c.read, c.write} {
		if f != nil && c.owned {
			if err := f.Close(); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}
	c.read, c.write = nil, nil
	return result.ErrorOrNil()
}

// makeflags builds the MAKEFLAGS value advertising this jobserver. Older
// makes only understand --jobserver-fds, which has no fifo form.
func makeflags(auth string) string {
	if strings.HasPrefix(auth, "fifo:") {
		return "-j --jobserver-auth=" + auth
	}
	return fmt.Sprintf("-j --jobserver-fds=%s --jobserver-auth=%s", auth, auth)
}
