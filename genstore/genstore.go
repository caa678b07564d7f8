// Package genstore hands out request generations.
//
// Every fetch issued by the engine draws a fresh generation for its key. The
// generation is the request token: a result is only allowed to clear the
// in-flight marker when its generation is still the newest one for that key.
package genstore

import (
	"context"
	"time"
)

// GenStore abstracts where generations live.
type GenStore interface {
	// Bump returns a new generation (> 0) for storageKey. Generations are never
	// reused, not even for different keys or after Cleanup.
	Bump(ctx context.Context, storageKey string) (uint64, error)
	// Snapshot returns the newest generation issued for storageKey; missing => 0.
	Snapshot(ctx context.Context, storageKey string) (uint64, error)
	// Cleanup prunes keys that have not been bumped within retention.
	Cleanup(retention time.Duration)
	// Close releases resources (no-op ok).
	Close(context.Context) error
}
