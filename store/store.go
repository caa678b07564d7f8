// Package store holds cache entries for querysync.
//
// A Store maps a key identity to at most one Entry. Writes overwrite
// atomically, there is no capacity bound and nothing is evicted except
// through Evict and EvictAll. Memory is the default; ProviderStore frames
// entries onto any provider.Provider (ristretto, bigcache, redis).
package store

import (
	"context"
	"fmt"
	"time"
)

// Entry is one cached value and the time it was written.
type Entry struct {
	Value     any
	WrittenAt time.Time
}

type Store interface {
	// Get returns (entry, true, nil) on hit and (Entry{}, false, nil) on miss.
	Get(ctx context.Context, key string) (Entry, bool, error)
	// Set overwrites any prior entry for key.
	Set(ctx context.Context, key string, value any, writtenAt time.Time) error
	Evict(ctx context.Context, key string) error
	EvictAll(ctx context.Context) error
	Close(ctx context.Context) error
}

// DecodeAs converts a cached value to V. Values written by Memory are returned
// as-is; Encoded values from a ProviderStore are decoded with their codec.
// ok is false for a nil value.
func DecodeAs[V any](v any) (out V, ok bool, err error) {
	if v == nil {
		return out, false, nil
	}
	if enc, isEnc := v.(Encoded); isEnc {
		if err := enc.Decode(&out); err != nil {
			return out, false, err
		}
		return out, true, nil
	}
	typed, isV := v.(V)
	if !isV {
		return out, false, fmt.Errorf("store: cached value of type %T is not %T", v, out)
	}
	return typed, true, nil
}
