package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies backend failures for retry decisions and for
// the failure reported to the presentation sink.
type ErrorKind int

const (
	// KindNetwork covers transport errors, timeouts and 5xx
	// responses. Retryable.
	KindNetwork ErrorKind = iota
	// KindRateLimit is a 429 from the backend. Retryable.
	KindRateLimit
	// KindAuth covers 401/403 and bad credentials. Fatal for the
	// dispatcher path, never retried.
	KindAuth
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindRateLimit:
		return "rate_limit"
	case KindAuth:
		return "auth"
	default:
		return "unknown"
	}
}

// BackendError wraps a failed AI backend call with its taxonomy kind.
type BackendError struct {
	Kind   ErrorKind
	Status int // HTTP status when applicable, 0 otherwise
	Err    error
}

func (e *BackendError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("backend %s (http %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("backend %s: %v", e.Kind, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// Transient reports whether the error is worth retrying.
func (e *BackendError) Transient() bool {
	return e.Kind != KindAuth
}

// ClassifyErr extracts the ErrorKind from an arbitrary error chain,
// defaulting to network/transient for anything untagged.
func ClassifyErr(err error) ErrorKind {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindNetwork
}
