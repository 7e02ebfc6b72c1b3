package report

import "sync"

// FailureSample is a compact record of a run that did not succeed.
type FailureSample struct {
	Name     string  `json:"name" yaml:"name"`
	Outcome  string  `json:"outcome" yaml:"outcome"`
	Detail   string  `json:"detail" yaml:"detail"`
	Duration float64 `json:"duration_seconds" yaml:"duration_seconds"`
	LogPath  string  `json:"log_path" yaml:"log_path"`
}

// FailureLog keeps the most recent failures in a ring buffer.
type FailureLog struct {
	samples []FailureSample
	maxSize int
	mu      sync.RWMutex
}

// NewFailureLog creates a failure log with fixed size.
func NewFailureLog(maxSize int) *FailureLog {
	if maxSize <= 0 {
		maxSize = 50
	}
	return &FailureLog{
		samples: make([]FailureSample, 0, maxSize),
		maxSize: maxSize,
	}
}

// Record adds r if it did not succeed.
func (f *FailureLog) Record(r *Result) {
	if r.OK() {
		return
	}

	detail := r.Error
	if detail == "" {
		detail = r.Status.String()
	}
	sample := FailureSample{
		Name:     r.Name,
		Outcome:  r.Outcome(),
		Detail:   detail,
		Duration: r.Duration.Seconds(),
		LogPath:  r.LogPath,
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Ring buffer: if full, drop oldest
	if len(f.samples) >= f.maxSize {
		f.samples = f.samples[1:]
	}
	f.samples = append(f.samples, sample)
}

// GetRecent returns up to n recent failures, newest first. n <= 0 means all.
func (f *FailureLog) GetRecent(n int) []FailureSample {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if n <= 0 || n > len(f.samples) {
		n = len(f.samples)
	}

	result := make([]FailureSample, n)
	for i := 0; i < n; i++ {
		result[i] = f.samples[len(f.samples)-1-i]
	}
	return result
}

// Count returns the number of failures held.
func (f *FailureLog) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.samples)
}
