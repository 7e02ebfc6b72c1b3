package cgroups

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Limits defines what can be written to a job's cgroup.
type Limits struct {
	MemoryMaxMB int64 `yaml:"memory_max_mb" json:"memory_max_mb,omitempty"` // 0 = no limit
	CPUWeight   int   `yaml:"cpu_weight" json:"cpu_weight,omitempty"`       // 1-10000, 0 = default
}

// IsZero reports whether no limit is set.
func (l Limits) IsZero() bool {
	return l.MemoryMaxMB == 0 && l.CPUWeight == 0
}

// Validate checks the limits are in range.
func (l Limits) Validate() error {
	if l.MemoryMaxMB < 0 {
		return fmt.Errorf("invalid memory limit: %d", l.MemoryMaxMB)
	}
	if l.CPUWeight < 0 || l.CPUWeight > 10000 {
		return fmt.Errorf("invalid cpu weight: %d (must be 1-10000)", l.CPUWeight)
	}
	return nil
}

func writeCPUWeight(cgroupPath string, weight int) error {
	if weight == 0 {
		return nil
	}
	return os.WriteFile(filepath.Join(cgroupPath, "cpu.weight"), []byte(strconv.Itoa(weight)), 0644)
}

func writeMemoryMax(cgroupPath string, mb int64) error {
	if mb == 0 {
		return nil
	}
	bytes := mb * 1024 * 1024
	return os.WriteFile(filepath.Join(cgroupPath, "memory.max"), []byte(strconv.FormatInt(bytes, 10)), 0644)
}
