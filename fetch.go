package querysync

import (
	"context"
	"errors"
	"fmt"
)

// QueryContext is what a Fetcher is called with.
type QueryContext struct {
	Key   Key
	Param any
}

// Fetcher performs the remote read for a query. It must return an error
// instead of hanging on failure. Returning ErrCanceled or context.Canceled
// (wrapped or not) marks a transport cancellation, which is discarded rather
// than published.
//
// ctx is canceled by CancelQuery and Engine.Close.
type Fetcher func(ctx context.Context, qc QueryContext) (any, error)

// Fetch issues fetcher for key unless a request for key is already
// outstanding, in which case it does nothing and the caller gets the result
// through its subscription. issued reports which of the two happened.
//
// guard may be nil. When set, it is pointed at key, and a success is only
// published while the guard still names key and the request is still the
// newest one for key. Failures are always published.
func (e *Engine) Fetch(key Key, guard *RaceGuard, fetcher Fetcher, param any) (issued bool, err error) {
	id, err := key.identity()
	if err != nil {
		return false, err
	}
	if fetcher == nil {
		return false, invalid("fetcher", "nil", ErrNilFetcher)
	}
	return e.fetch(id, key.clone(), guard, fetcher, param)
}

func (e *Engine) fetch(id string, key Key, guard *RaceGuard, fetcher Fetcher, param any) (bool, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false, ErrClosed
	}
	if e.inflight.isOutstanding(id) {
		e.mu.Unlock()
		e.hooks.FetchDeduplicated(id)
		e.log.Debug("fetch deduplicated", Fields{"key": id})
		return false, nil
	}
	ctx, cancel := context.WithCancel(e.ctx)
	ticket := e.inflight.reserve(id, cancel)
	e.wg.Add(1)
	e.mu.Unlock()

	// the GenStore may be remote, so the token is drawn outside e.mu; the
	// reservation keeps concurrent fetches for id deduplicated meanwhile
	token, err := e.gen.Bump(ctx, id)
	if err != nil {
		e.mu.Lock()
		e.inflight.abandon(id, ticket)
		e.mu.Unlock()
		cancel()
		e.wg.Done()
		return false, fmt.Errorf("querysync: request token for %q: %w", id, err)
	}
	e.mu.Lock()
	if !e.inflight.confirm(id, ticket, token) {
		// replaced or canceled meanwhile; the result will be discarded
		e.log.Debug("reservation superseded", Fields{"key": id, "token": token})
	}
	e.mu.Unlock()

	if guard != nil {
		guard.setActive(id)
	}
	e.hooks.FetchIssued(id)
	e.log.Debug("fetch issued", Fields{"key": id, "token": token})

	go e.run(ctx, cancel, id, token, guard, fetcher, QueryContext{Key: key, Param: param})
	return true, nil
}

func (e *Engine) run(ctx context.Context, cancel context.CancelFunc, id string, token uint64, guard *RaceGuard, fetcher Fetcher, qc QueryContext) {
	defer e.wg.Done()
	defer cancel()

	v, err := fetcher(ctx, qc)

	if e.isClosed() {
		e.hooks.ResultSuperseded(id, "closed")
		return
	}

	switch {
	case err != nil && IsCanceled(err):
		e.discard(id, token, "canceled")
		guard.cancelIf(id)

	case err != nil:
		ferr := asFetchError(id, err)
		e.hooks.FetchFailed(id, ferr)
		e.log.Warn("fetch failed", Fields{"key": id, "err": ferr.Error()})
		e.publish(e.ctx, id, e.lastGood(id), Fail, ferr, token)
		guard.cancelIf(id)

	case !guard.isActiveOrNil(id):
		e.discard(id, token, "guard_inactive")

	default:
		e.mu.Lock()
		current := e.inflight.matchesCurrent(id, token)
		e.mu.Unlock()
		if !current {
			e.discard(id, token, "token_mismatch")
			return
		}
		e.publish(e.ctx, id, v, Success, nil, token)
		guard.cancelIf(id)
	}
}

// discard drops a settled result. When the dropped request still owns the
// marker nobody else will settle it, so the marker is cleared and the key's
// cancel callbacks run to take subscribers out of their fetching state.
func (e *Engine) discard(id string, token uint64, reason string) {
	e.mu.Lock()
	var fns []func()
	if e.inflight.endIf(id, token) {
		fns = e.subs.cancelFuncs(id)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	e.hooks.ResultSuperseded(id, reason)
	e.log.Debug("result discarded", Fields{"key": id, "reason": reason, "token": token})
}

// lastGood is the value a fail outcome carries: the cached value or nil.
func (e *Engine) lastGood(id string) any {
	ent, ok, err := e.store.Get(e.ctx, id)
	if err != nil {
		e.storeFailed("get", id, err)
		return nil
	}
	if !ok {
		return nil
	}
	return ent.Value
}

func asFetchError(id string, err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		if fe.Key == "" {
			fe.Key = id
		}
		return fe
	}
	return &FetchError{Key: id, Attempts: 1, Cause: err}
}
