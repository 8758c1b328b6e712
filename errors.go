package unibill

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrWrongContext is returned when a call does not carry the owner token.
	ErrWrongContext = errors.New("unibill: call from a context other than the owner")
	// ErrAlreadyInitialized is returned by a second Init.
	ErrAlreadyInitialized = errors.New("unibill: already initialized")
	// ErrNotInitialized is returned by every entry point used before Init.
	ErrNotInitialized = errors.New("unibill: not initialized")
	// ErrClosed is returned by every entry point used after Close.
	ErrClosed = errors.New("unibill: closed")
)

// UsageError reports API misuse. Usage errors are never queued or retried.
type UsageError struct {
	Op  string
	Err error
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UsageError) Unwrap() error { return e.Err }

func usageError(op string, err error) error {
	return &UsageError{Op: op, Err: err}
}

// EnvironmentError is returned by Init when one or more providers failed
// CheckEnvironment.
type EnvironmentError struct {
	Providers []string
	Errs      []error
}

func (e *EnvironmentError) Error() string {
	parts := make([]string, 0, len(e.Errs))
	for i, err := range e.Errs {
		parts = append(parts, fmt.Sprintf("%s: %v", e.Providers[i], err))
	}
	return "unibill: environment check failed: " + strings.Join(parts, "; ")
}

func (e *EnvironmentError) Unwrap() []error {
	return e.Errs
}
