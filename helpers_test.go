package querysync

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

const waitTimeout = 2 * time.Second

func newTestEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	e := New(opts)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
		defer cancel()
		if err := e.Close(ctx); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return e
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, cond func() bool, format string, args ...any) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out: "+format, args...)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// ==============================
// Controllable fetcher
// ==============================

type result struct {
	v   any
	err error
}

type call struct {
	ctx  context.Context
	qc   QueryContext
	done chan result
}

func (c *call) resolve(v any)    { c.done <- result{v: v} }
func (c *call) reject(err error) { c.done <- result{err: err} }

// fakeFetcher blocks every call until the test settles it.
type fakeFetcher struct {
	mu     sync.Mutex
	calls  []*call
	issued chan *call
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{issued: make(chan *call, 64)}
}

func (f *fakeFetcher) fetch(ctx context.Context, qc QueryContext) (any, error) {
	c := &call{ctx: ctx, qc: qc, done: make(chan result, 1)}
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
	f.issued <- c

	select {
	case r := <-c.done:
		return r.v, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// next waits for the next issued call.
func (f *fakeFetcher) next(t *testing.T) *call {
	t.Helper()
	select {
	case c := <-f.issued:
		return c
	case <-time.After(waitTimeout):
		t.Fatalf("fetcher was not called")
		return nil
	}
}

// ==============================
// Recorders
// ==============================

type event struct {
	value  any
	kind   Outcome
	reason error
}

type recorder struct {
	mu     sync.Mutex
	events []event
}

func (r *recorder) onData(v any, kind Outcome, reason error) {
	r.mu.Lock()
	r.events = append(r.events, event{value: v, kind: kind, reason: reason})
	r.mu.Unlock()
}

func (r *recorder) snapshot() []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event(nil), r.events...)
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type recHooks struct {
	NopHooks
	mu     sync.Mutex
	events []string
}

func (h *recHooks) add(s string) {
	h.mu.Lock()
	h.events = append(h.events, s)
	h.mu.Unlock()
}

func (h *recHooks) FetchIssued(key string)       { h.add("issued:" + key) }
func (h *recHooks) FetchDeduplicated(key string) { h.add("dedup:" + key) }
func (h *recHooks) ResultSuperseded(key, reason string) {
	h.add("superseded:" + key + ":" + reason)
}
func (h *recHooks) FetchFailed(key string, _ error) { h.add("failed:" + key) }
func (h *recHooks) StoreError(op, key string, _ error) {
	h.add("store:" + op + ":" + key)
}

func (h *recHooks) count(s string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, e := range h.events {
		if e == s {
			n++
		}
	}
	return n
}

// ==============================
// Fake clock
// ==============================

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(1_700_000_000, 0)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func subscriberID(i int) string { return fmt.Sprintf("sub-%d", i) }
