// Package provider defines the byte store that can back a querysync cache.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly the
// same []byte that was previously passed to Set for a key. querysync frames every
// value with its own header and treats foreign bytes as corruption.
//
// The "qs:<namespace>:" keyspace is owned by store.ProviderStore. External code
// MUST NOT write under it.
package provider

import (
	"context"
	"time"
)

// Provider is a minimal byte store with optional TTLs.
// Must be safe for concurrent use. A Get that follows a successful Set for the
// same key must observe that Set (read-your-writes).
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value. ttl <= 0 means no expiry. May ignore cost if unsupported.
	// Returns ok=false when the store rejected the write under pressure.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes a key. Deleting a missing key is not an error.
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}
