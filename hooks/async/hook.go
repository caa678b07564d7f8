// usage:
//
// import (
//
//	"log/slog"
//
//	"github.com/unkn0wn-root/querysync"
//	"github.com/unkn0wn-root/querysync/hooks/async"
//	"github.com/unkn0wn-root/querysync/sloghooks"
//
// )
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    DedupEvery:     100, // sample: ~every 100th deduplicated fetch
//	    PublishedEvery: 10,
//	})
//
// hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
// defer hooks.Close()
//
//	engine := querysync.New(querysync.Options{
//	    Hooks: hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/querysync"
)

// Hooks forwards events to inner on a bounded worker queue. Events that do not
// fit the queue are dropped and counted.
type Hooks struct {
	inner   querysync.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ querysync.Hooks = (*Hooks)(nil)

func New(inner querysync.Hooks, workers, qlen int) *Hooks {
	if inner == nil {
		inner = querysync.NopHooks{}
	}
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close stops accepting events and waits for queued ones to run.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) FetchIssued(k string)       { h.try(func() { h.inner.FetchIssued(k) }) }
func (h *Hooks) FetchDeduplicated(k string) { h.try(func() { h.inner.FetchDeduplicated(k) }) }
func (h *Hooks) ResultSuperseded(k, r string) {
	h.try(func() { h.inner.ResultSuperseded(k, r) })
}
func (h *Hooks) FetchFailed(k string, err error) { h.try(func() { h.inner.FetchFailed(k, err) }) }
func (h *Hooks) Published(k string, kind querysync.Outcome, n int) {
	h.try(func() { h.inner.Published(k, kind, n) })
}
func (h *Hooks) StoreError(op, k string, err error) {
	h.try(func() { h.inner.StoreError(op, k, err) })
}
