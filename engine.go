package querysync

import (
	"context"
	"errors"
	"time"

	"github.com/unkn0wn-root/querysync/store"
)

// Subscribe registers s for key. Registering the same (key, s.ID) twice is a
// no-op: the first registration wins.
func (e *Engine) Subscribe(key Key, s Subscriber) error {
	id, err := key.identity()
	if err != nil {
		return err
	}
	if s.ID == "" {
		return invalid("subscriber id", "empty", nil)
	}
	if s.OnData == nil {
		return invalid("subscriber OnData", "nil callback", nil)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.subs.subscribe(id, s)
	return nil
}

// Unsubscribe removes the (key, consumerID) record. Unknown pairs are ignored.
func (e *Engine) Unsubscribe(key Key, consumerID string) {
	e.unsubscribe(key.String(), consumerID)
}

func (e *Engine) unsubscribe(id, consumerID string) {
	e.mu.Lock()
	e.subs.unsubscribe(id, consumerID)
	e.mu.Unlock()
}

// Subscribers reports how many consumers are subscribed to key.
func (e *Engine) Subscribers(key Key) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.subs.count(key.String())
}

// IsOutstanding reports whether a request for key is in flight.
func (e *Engine) IsOutstanding(key Key) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inflight.isOutstanding(key.String())
}

// Invalidate asks every subscriber of key to fetch again. Subscribers share
// the in-flight marker, so at most one request results.
func (e *Engine) Invalidate(key Key) error {
	id, err := key.identity()
	if err != nil {
		return err
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	fns := e.subs.invalidateFuncs(id)
	e.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	e.log.Debug("invalidated", Fields{"key": id, "subscribers": len(fns)})
	return nil
}

func (e *Engine) InvalidateAll(keys ...Key) error {
	var errs []error
	for _, k := range keys {
		if err := e.Invalidate(k); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Mutate publishes value for key as a Mutate outcome without fetching.
func (e *Engine) Mutate(ctx context.Context, key Key, value any) error {
	return e.Publish(ctx, key, value, Mutate, nil)
}

// SetQueryData derives the next value for key from the cached one (nil when
// absent) and publishes it as a Mutate outcome.
func (e *Engine) SetQueryData(ctx context.Context, key Key, update func(prev any) any) error {
	if update == nil {
		return invalid("update", "nil func", nil)
	}
	prev, _, err := e.GetQueryData(ctx, key)
	if err != nil {
		return err
	}
	return e.Mutate(ctx, key, update(prev))
}

// GetQueryData returns the cached value for key. Values from a
// store.ProviderStore come back as store.Encoded; see GetQueryDataAs.
func (e *Engine) GetQueryData(ctx context.Context, key Key) (any, bool, error) {
	id, err := key.identity()
	if err != nil {
		return nil, false, err
	}
	ent, ok, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, false, &StoreError{Op: "get", Key: id, Err: err}
	}
	if !ok {
		return nil, false, nil
	}
	return ent.Value, true, nil
}

// GetQueryDataAs is GetQueryData converted to V.
func GetQueryDataAs[V any](ctx context.Context, e *Engine, key Key) (V, bool, error) {
	var zero V
	if e == nil {
		return zero, false, invalid("engine", "nil", ErrNilEngine)
	}
	v, ok, err := e.GetQueryData(ctx, key)
	if err != nil || !ok {
		return zero, false, err
	}
	return store.DecodeAs[V](v)
}

// GetQueriesData returns cached values aligned with keys; misses are nil.
func (e *Engine) GetQueriesData(ctx context.Context, keys ...Key) ([]any, error) {
	out := make([]any, len(keys))
	for i, k := range keys {
		v, _, err := e.GetQueryData(ctx, k)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// CancelQuery runs the cancel callbacks of key's subscribers and clears its
// in-flight marker. The fetcher's context is canceled; whatever it returns
// afterwards is discarded.
func (e *Engine) CancelQuery(key Key) error {
	id, err := key.identity()
	if err != nil {
		return err
	}
	e.mu.Lock()
	fns := e.subs.cancelFuncs(id)
	m, ok := e.inflight.end(id)
	e.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	if ok && m.cancel != nil {
		m.cancel()
	}
	e.log.Debug("query canceled", Fields{"key": id, "outstanding": ok})
	return nil
}

// ClearCache evicts key from the store. Subscribers are not notified.
func (e *Engine) ClearCache(ctx context.Context, key Key) error {
	id, err := key.identity()
	if err != nil {
		return err
	}
	return e.evict(ctx, id)
}

func (e *Engine) ClearAllCache(ctx context.Context) error {
	if err := e.store.EvictAll(ctx); err != nil {
		e.storeFailed("evict_all", "", err)
		return &StoreError{Op: "evict_all", Err: err}
	}
	return nil
}

func (e *Engine) evict(ctx context.Context, id string) error {
	if err := e.store.Evict(ctx, id); err != nil {
		e.storeFailed("evict", id, err)
		return &StoreError{Op: "evict", Key: id, Err: err}
	}
	return nil
}

// write stores value without notifying anyone.
func (e *Engine) write(ctx context.Context, id string, value any) {
	if err := e.store.Set(ctx, id, value, e.now()); err != nil {
		e.storeFailed("set", id, err)
	}
}

// dropMarker forgets the in-flight request for id without canceling it.
func (e *Engine) dropMarker(id string) {
	e.mu.Lock()
	e.inflight.end(id)
	e.mu.Unlock()
}

// seed returns the cached entry for id when a consumer may start from it:
// the entry is younger than cacheTime, or keepAlways is set.
func (e *Engine) seed(ctx context.Context, id string, cacheTime time.Duration, keepAlways bool) (store.Entry, bool) {
	ent, ok, err := e.store.Get(ctx, id)
	if err != nil {
		e.storeFailed("get", id, err)
		return store.Entry{}, false
	}
	if !ok || ent.Value == nil {
		return store.Entry{}, false
	}
	if !keepAlways && StaleAt(cacheTime, ent.WrittenAt, e.now()) {
		return store.Entry{}, false
	}
	return ent, true
}
