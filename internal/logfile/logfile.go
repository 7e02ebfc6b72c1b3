// Package logfile provides per-run log files that a child writes its output to.
package logfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// maxAttempts bounds the search for an unused file name.
const maxAttempts = 1000

// LogFile is a per-run text log. The child's stdout and stderr are appended
// through independent handles while diagnostic messages are written through
// the LogFile itself.
type LogFile struct {
	path string

	mu   sync.Mutex
	file *os.File
}

// Create makes a new, uniquely named log file in dir. The name is derived
// from scenario; if it is already taken a numeric suffix is added.
func Create(dir, scenario string) (*LogFile, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	base := cleanName(scenario)
	for i := 0; i < maxAttempts; i++ {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s_%03d", base, i)
		}
		path := filepath.Join(dir, name+".log")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY|os.O_APPEND, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create log file %s: %w", path, err)
		}
		return &LogFile{path: path, file: f}, nil
	}
	return nil, fmt.Errorf("no free log file name for %q in %s", scenario, dir)
}

// Path returns the log file location.
func (l *LogFile) Path() string {
	return l.path
}

// OpenAppend opens a new handle that appends to the log. The caller owns
// the returned file and must close it.
func (l *LogFile) OpenAppend() (*os.File, error) {
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s for append: %w", l.path, err)
	}
	return f, nil
}

// Message appends a diagnostic line, marked so it stands out from the
// child's own output. Write failures are ignored.
func (l *LogFile) Message(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return
	}
	_, _ = fmt.Fprintf(l.file, "\n*** %s\n", msg)
}

// Close releases the LogFile's own handle. Handles from OpenAppend are not
// affected.
func (l *LogFile) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// cleanName turns an arbitrary scenario description into a file name.
func cleanName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := strings.Trim(b.String(), "._")
	if name == "" {
		name = "log"
	}
	if len(name) > 160 {
		name = name[:160]
	}
	return name
}
