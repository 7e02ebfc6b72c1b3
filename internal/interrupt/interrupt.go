// Package interrupt holds the process-wide cooperative cancellation flag.
//
// The flag is level-triggered: once raised, every subsequent Check by every
// running operation observes it until Reset is called. There is no way to
// cancel one operation without affecting every other one sharing the flag.
package interrupt

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
)

// ErrInterrupted is wrapped by every error returned from Check.
var ErrInterrupted = errors.New("interrupted")

var (
	installOnce sync.Once
	raised      atomic.Pointer[cause]
)

type cause struct {
	err error
}

// Install registers a handler for SIGINT and SIGTERM that raises the flag.
// It is safe to call multiple times; the handler is registered once.
func Install() {
	installOnce.Do(func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		go func() {
			for sig := range sigChan {
				Raise(fmt.Errorf("%w by %s", ErrInterrupted, sig))
			}
		}()
	})
}

// Raise sets the flag. A nil err records a plain ErrInterrupted; a non-nil
// err is kept as the payload returned by Check. The first cause wins.
func Raise(err error) {
	if err == nil {
		err = ErrInterrupted
	} else if !errors.Is(err, ErrInterrupted) {
		err = fmt.Errorf("%w: %w", ErrInterrupted, err)
	}
	raised.CompareAndSwap(nil, &cause{err: err})
}

// Check returns nil unless an interrupt has been requested.
func Check() error {
	if c := raised.Load(); c != nil {
		return c.err
	}
	return nil
}

// Reset clears the flag.
func Reset() {
	raised.Store(nil)
}
