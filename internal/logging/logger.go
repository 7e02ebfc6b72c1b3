// Package logging builds the hclog loggers used for diagnostics.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// Options configures a diagnostic logger.
type Options struct {
	Name   string
	Level  string
	JSON   bool
	Output io.Writer
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = hclog.NewNullLogger()
)

// New creates a structured logger writing to opts.Output (stderr if nil).
func New(opts Options) hclog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:            opts.Name,
		Level:           ParseLevel(opts.Level),
		JSONFormat:      opts.JSON,
		Output:          out,
		IncludeLocation: false,
		Color:           hclog.AutoColor,
	})
}

// Default returns the process-wide logger. Library packages derive their
// named sub-loggers from it; until SetDefault is called it discards output.
func Default() hclog.Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault replaces the process-wide logger.
func SetDefault(l hclog.Logger) {
	if l == nil {
		l = hclog.NewNullLogger()
	}
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// ParseLevel parses a log level string. Unknown values fall back to INFO.
func ParseLevel(level string) hclog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return hclog.Trace
	case "debug":
		return hclog.Debug
	case "info", "":
		return hclog.Info
	case "warn", "warning":
		return hclog.Warn
	case "error":
		return hclog.Error
	case "off":
		return hclog.Off
	default:
		return hclog.Info
	}
}

// WritableDir returns the first candidate directory that can be created and
// written to, or "" if none can.
func WritableDir(candidates ...string) string {
	for _, dir := range candidates {
		if dir != "" && isWritable(dir) {
			return dir
		}
	}
	return ""
}

// isWritable checks if directory is writable
func isWritable(path string) bool {
	if err := os.MkdirAll(path, 0755); err != nil {
		return false
	}

	testFile := filepath.Join(path, ".write_test")
	f, err := os.Create(testFile)
	if err != nil {
		return false
	}
	f.Close()
	os.Remove(testFile)
	return true
}
