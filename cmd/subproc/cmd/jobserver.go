package cmd

import (
	"errors"

	"github.com/psantana5/subproc/internal/jobserver"
	"github.com/psantana5/subproc/internal/process"
)

// openJobserver creates a jobserver with tokens slots, or adopts the one
// advertised by a parent make when tokens is zero. The returned close func is
// never nil.
func openJobserver(tokens int) (process.Jobserver, func(), error) {
	var (
		client *jobserver.Client
		err    error
	)
	if tokens > 0 {
		client, err = jobserver.New(tokens)
	} else {
		client, err = jobserver.FromEnv()
		if errors.Is(err, jobserver.ErrNotAdvertised) {
			return nil, func() {}, nil
		}
		if err != nil {
			// An inherited jobserver that is unusable only costs parallelism.
			logger.Warn("ignoring advertised jobserver", "error", err)
			return nil, func() {}, nil
		}
	}
	if err != nil {
		return nil, func() {}, err
	}
	return client, func() {
		if err := client.Close(); err != nil {
			logger.Debug("failed to close jobserver", "error", err)
		}
	}, nil
}
