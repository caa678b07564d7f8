package querysync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gen "github.com/unkn0wn-root/querysync/genstore"
	"github.com/unkn0wn-root/querysync/store"
)

const (
	defaultStaleTime    = 10 * time.Second
	defaultCacheTime    = 5 * time.Minute
	defaultGenSweep     = time.Minute
	defaultGenRetention = 10 * time.Minute
)

// Options tune the engine. Every field is optional.
// The boolean switches are phrased so that false is the default behavior.
type Options struct {
	Store    store.Store  // nil => store.NewMemory()
	GenStore gen.GenStore // nil => genstore.NewLocal (in-process)
	Logger   Logger       // nil => NopLogger
	Hooks    Hooks        // nil => NopHooks
	Now      func() time.Time

	StaleTime time.Duration // 0 => 10s; NeverStale disables; < 0 => always stale
	CacheTime time.Duration // 0 => 5m; NeverStale keeps cached values usable forever

	KeepCacheAlways      bool // seed consumers from cache even past CacheTime
	DisableSync          bool // a stale consumer no longer accepts broadcasts it did not ask for
	DropValueOnKeyChange bool // SetKey reseeds from cache instead of keeping the old value
	DisableAutoFetch     bool // consumers fetch only on Refetch, invalidation or key change

	GenCleanupInterval time.Duration // 0 => 1m
	GenRetention       time.Duration // 0 => 10m
}

type queryDefaults struct {
	staleTime            time.Duration
	cacheTime            time.Duration
	keepCacheAlways      bool
	disableSync          bool
	dropValueOnKeyChange bool
	disableAutoFetch     bool
}

// Engine coordinates fetches, cache writes and subscriber fan-out for any
// number of keys. It is safe for concurrent use.
type Engine struct {
	store store.Store
	gen   gen.GenStore
	log   Logger
	hooks Hooks
	now   func() time.Time
	def   queryDefaults

	mu       sync.Mutex
	subs     *registry
	inflight *tracker
	closed   bool

	// pub orders store write and fan-out per key; never taken under mu
	pub *keyLocks

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(opts Options) *Engine {
	e := &Engine{
		subs:     newRegistry(),
		inflight: newTracker(),
		pub:      newKeyLocks(),
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())

	// defaults
	e.log = coalesce[Logger](opts.Logger, NopLogger{})
	e.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	if opts.Store != nil {
		e.store = opts.Store
	} else {
		e.store = store.NewMemory()
	}
	e.now = opts.Now
	if e.now == nil {
		e.now = time.Now
	}
	if opts.GenStore != nil {
		e.gen = opts.GenStore
	} else {
		e.gen = gen.NewLocal(
			coalesce[time.Duration](opts.GenCleanupInterval, defaultGenSweep),
			coalesce[time.Duration](opts.GenRetention, defaultGenRetention),
		)
	}
	e.def = queryDefaults{
		staleTime:            coalesce[time.Duration](opts.StaleTime, defaultStaleTime),
		cacheTime:            coalesce[time.Duration](opts.CacheTime, defaultCacheTime),
		keepCacheAlways:      opts.KeepCacheAlways,
		disableSync:          opts.DisableSync,
		dropValueOnKeyChange: opts.DropValueOnKeyChange,
		disableAutoFetch:     opts.DisableAutoFetch,
	}
	return e
}

// Close stops accepting fetches, cancels the context handed to outstanding
// fetchers and waits for them to return (or for ctx to end). Results that
// arrive after Close are dropped.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()
	e.cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("querysync: close: %w", ctx.Err())
	}

	var errs []error
	if err := e.gen.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := e.store.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}
