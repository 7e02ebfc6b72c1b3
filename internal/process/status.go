package process

import "fmt"

// StatusKind names the variant of a Status.
type StatusKind string

const (
	KindSuccess   StatusKind = "success"
	KindFailure   StatusKind = "failure"
	KindTimeout   StatusKind = "timeout"
	KindSignalled StatusKind = "signalled"
	KindOther     StatusKind = "other"
)

// Status is the final outcome of running one child process. It is produced
// once per Process and needs no further interaction with the OS, so it is
// safe to copy, compare and serialize.
type Status struct {
	Kind StatusKind `json:"kind" yaml:"kind"`

	// Code is the exit code for KindFailure.
	Code int `json:"code,omitempty" yaml:"code,omitempty"`

	// Signal is the signal number for KindSignalled.
	Signal int `json:"signal,omitempty" yaml:"signal,omitempty"`
}

var (
	// Success means the child exited with status 0.
	Success = Status{Kind: KindSuccess}

	// Timeout means the child exceeded its timeout and was terminated.
	Timeout = Status{Kind: KindTimeout}

	// Other covers exits that yield neither an exit code nor a signal.
	Other = Status{Kind: KindOther}
)

// Failure is a non-zero exit with the given code.
func Failure(code int) Status {
	return Status{Kind: KindFailure, Code: code}
}

// Signalled is death by the given signal number. Only produced on platforms
// that have signals.
func Signalled(signal int) Status {
	return Status{Kind: KindSignalled, Signal: signal}
}

// IsSuccess reports whether the child exited 0.
func (s Status) IsSuccess() bool {
	return s.Kind == KindSuccess
}

// IsTimeout reports whether the child was terminated for running too long.
func (s Status) IsTimeout() bool {
	return s.Kind == KindTimeout
}

// IsFailure reports whether the child exited with a non-zero code.
func (s Status) IsFailure() bool {
	return s.Kind == KindFailure
}

func (s Status) String() string {
	switch s.Kind {
	case KindSuccess:
		return "Success"
	case KindFailure:
		return fmt.Sprintf("Failure(%d)", s.Code)
	case KindTimeout:
		return "Timeout"
	case KindSignalled:
		return fmt.Sprintf("Signalled(%d)", s.Signal)
	case KindOther:
		return "Other"
	default:
		return fmt.Sprintf("Unknown(%s)", string(s.Kind))
	}
}
