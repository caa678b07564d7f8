package querysync

import (
	"context"
	"fmt"
)

// Outcome is the kind of event a publish carries.
type Outcome uint8

const (
	Success Outcome = iota
	Fail
	// Mutate writes like Success but never touches the in-flight marker and
	// bypasses consumer fetch-state gating.
	Mutate
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Fail:
		return "fail"
	case Mutate:
		return "mutate"
	default:
		return fmt.Sprintf("outcome(%d)", uint8(o))
	}
}

// Publish broadcasts an outcome for key to every subscriber of key.
//
// Unless kind is Fail the value is written to the store first. Subscribers
// are then called in registration order, synchronously, before Publish
// returns. Finally, unless kind is Mutate, the key's in-flight marker is
// cleared. Store failures are reported through Hooks and Logger; Publish only
// returns validation errors and ErrClosed.
//
// Publishes for one key are serialized from the store write to the end of
// the fan-out, so the cached value is always the last one subscribers saw.
// A subscriber callback must therefore not publish to the key it is being
// notified for; it may use any other engine method, or publish from a new
// goroutine.
func (e *Engine) Publish(ctx context.Context, key Key, value any, kind Outcome, reason error) error {
	id, err := key.identity()
	if err != nil {
		return err
	}
	if kind > Mutate {
		return invalid("outcome", kind.String(), nil)
	}
	if e.isClosed() {
		return ErrClosed
	}
	e.publish(ctx, id, value, kind, reason, 0)
	return nil
}

// publish is the bus. A zero token clears the marker unconditionally; a fetch
// passes its own token so a newer marker set meanwhile survives.
func (e *Engine) publish(ctx context.Context, id string, value any, kind Outcome, reason error, token uint64) {
	unlock := e.pub.lock(id)
	defer unlock()

	if kind != Fail {
		if err := e.store.Set(ctx, id, value, e.now()); err != nil {
			e.storeFailed("set", id, err)
		}
	}

	e.mu.Lock()
	fns := e.subs.dataFuncs(id)
	e.mu.Unlock()

	// callbacks may re-enter the engine, so the lock is not held here
	for _, fn := range fns {
		fn(value, kind, reason)
	}

	if kind != Mutate {
		e.mu.Lock()
		if token == 0 {
			e.inflight.end(id)
		} else {
			e.inflight.endIf(id, token)
		}
		e.mu.Unlock()
	}

	e.hooks.Published(id, kind, len(fns))
	e.log.Debug("published", Fields{"key": id, "kind": kind.String(), "subscribers": len(fns)})
}

func (e *Engine) storeFailed(op, id string, err error) {
	serr := &StoreError{Op: op, Key: id, Err: err}
	e.hooks.StoreError(op, id, err)
	e.log.Warn("store operation failed", Fields{"op": op, "key": id, "err": serr.Error()})
}
