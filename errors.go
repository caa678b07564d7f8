package querysync

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInvalidKey       = errors.New("querysync: invalid key")
	ErrNilFetcher       = errors.New("querysync: nil fetcher")
	ErrNilEngine        = errors.New("querysync: nil engine")
	ErrClosed           = errors.New("querysync: engine closed")
	ErrMutationInFlight = errors.New("querysync: mutation already in flight")
	ErrRetryExhausted   = errors.New("querysync: retries exhausted")

	// ErrCanceled is what a fetcher returns (or wraps) when its transport was
	// canceled. Such results are discarded, never published as failures.
	ErrCanceled = errors.New("querysync: fetch canceled")
)

// ValidationError is returned synchronously for malformed arguments.
// It never leaves engine state modified.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("querysync: invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// FetchError is the reason delivered with a fail outcome.
type FetchError struct {
	Key      string
	Attempts int
	Cause    error
}

func (e *FetchError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("querysync: fetch %q failed after %d attempts: %v", e.Key, e.Attempts, e.Cause)
	}
	return fmt.Sprintf("querysync: fetch %q failed: %v", e.Key, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

// StoreError describes a failed cache store operation. The engine reports it
// through Hooks and Logger; publishers never see it.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("querysync: store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsCanceled reports whether err is a transport cancellation.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled)
}

func invalid(field, reason string, sentinel error) error {
	return &ValidationError{Field: field, Reason: reason, Err: sentinel}
}
