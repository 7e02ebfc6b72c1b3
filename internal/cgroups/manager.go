// Package cgroups places supervised children into a cgroup v2 group with
// memory and CPU limits. Everything here is best effort: when cgroup v2 is
// not mounted or not writable, jobs simply run without limits.
package cgroups

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/hashicorp/go-hclog"
)

// DefaultRoot is where the unified hierarchy is normally mounted.
const DefaultRoot = "/sys/fs/cgroup"

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// Manager handles cgroup lifecycle only: create, join, apply, delete.
type Manager struct {
	root   string
	logger hclog.Logger
}

// New creates a manager for the system hierarchy.
func New(logger hclog.Logger) *Manager {
	return NewAt(DefaultRoot, logger)
}

// NewAt creates a manager rooted at root.
func NewAt(root string, logger hclog.Logger) *Manager {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Manager{root: root, logger: logger.Named("cgroups")}
}

// Enabled reports whether root is a cgroup v2 hierarchy.
func (m *Manager) Enabled() bool {
	_, err := os.Stat(filepath.Join(m.root, "cgroup.controllers"))
	return err == nil
}

// Create makes subproc/<name> and returns its path. An empty path with a nil
// error means cgroups are unavailable and the job should run unconfined.
func (m *Manager) Create(name string) (string, error) {
	if !m.Enabled() {
		m.logger.Debug("cgroup v2 not available", "root", m.root)
		return "", nil
	}
	if name == "" {
		name = fmt.Sprintf("unnamed-%d", os.Getpid())
	}
	path := filepath.Join(m.root, "subproc", unsafeName.ReplaceAllString(name, "_"))

	if err := os.MkdirAll(path, 0755); err != nil {
		if errors.Is(err, os.ErrPermission) {
			m.logger.Debug("no permission to create cgroup", "path", path)
			return "", nil
		}
		return "", err
	}
	return path, nil
}

// Join moves pid into the cgroup at path.
func (m *Manager) Join(path string, pid int) error {
	if path == "" {
		return nil
	}
	if pid <= 0 {
		return fmt.Errorf("invalid pid: %d", pid)
	}
	return os.WriteFile(filepath.Join(path, "cgroup.procs"), []byte(strconv.Itoa(pid)), 0644)
}

// Apply writes limits into the cgroup at path.
func (m *Manager) Apply(path string, limits Limits) error {
	if path == "" || limits.IsZero() {
		return nil
	}
	if err := limits.Validate(); err != nil {
		return err
	}
	if err := writeMemoryMax(path, limits.MemoryMaxMB); err != nil {
		return fmt.Errorf("failed to set memory.max: %w", err)
	}
	if err := writeCPUWeight(path, limits.CPUWeight); err != nil {
		return fmt.Errorf("failed to set cpu.weight: %w", err)
	}
	return nil
}

// Delete removes the cgroup directory. The kernel refuses while processes
// remain in it.
func (m *Manager) Delete(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
