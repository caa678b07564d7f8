package querysync

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/unkn0wn-root/querysync/store"
)

// State is a point-in-time view of a Query.
type State[V any] struct {
	Key     Key
	Data    V
	HasData bool
	Err     error

	IsFetching     bool
	IsLoading      bool // fetching with nothing to show yet
	IsInvalidating bool
	IsError        bool
	IsStale        bool

	// UpdatedAt is when Data was last accepted; the staleness clock.
	UpdatedAt time.Time
}

// QueryOptions override the engine defaults for one query. Zero durations
// inherit; the switches can only turn a behavior on.
type QueryOptions[V any] struct {
	StaleTime            time.Duration
	CacheTime            time.Duration
	KeepCacheAlways      bool
	DisableSync          bool
	DropValueOnKeyChange bool
	DisableAutoFetch     bool

	// Callbacks run outside the query lock, in the order listed.
	OnSuccess func(data V)
	OnError   func(err error)
	OnSettled func(data V, err error)
	OnMutated func(data V)
	OnChange  func(s State[V])

	// invalidation only marks the query stale
	manualInvalidate bool
}

// Query is one consumer of a key. It subscribes to the engine, applies the
// gating rules to every broadcast and keeps a typed State.
type Query[V any] struct {
	e          *Engine
	consumerID string
	fetcher    Fetcher
	cfg        queryDefaults
	opts       QueryOptions[V]
	guard      RaceGuard

	mu       sync.Mutex
	key      Key
	ident    string
	st       State[V]
	initial  bool
	timer    *time.Timer
	timerSeq uint64
	closed   bool
}

// NewQuery subscribes a new consumer to key, seeding its data from the cache
// when the cached entry is young enough, and fetches unless auto-fetch is off.
func NewQuery[V any](e *Engine, key Key, fetcher Fetcher, opts QueryOptions[V]) (*Query[V], error) {
	if e == nil {
		return nil, invalid("engine", "nil", ErrNilEngine)
	}
	if fetcher == nil {
		return nil, invalid("fetcher", "nil", ErrNilFetcher)
	}
	id, err := key.identity()
	if err != nil {
		return nil, err
	}

	cfg := e.def
	cfg.staleTime = coalesce[time.Duration](opts.StaleTime, cfg.staleTime)
	cfg.cacheTime = coalesce[time.Duration](opts.CacheTime, cfg.cacheTime)
	cfg.keepCacheAlways = cfg.keepCacheAlways || opts.KeepCacheAlways
	cfg.disableSync = cfg.disableSync || opts.DisableSync
	cfg.dropValueOnKeyChange = cfg.dropValueOnKeyChange || opts.DropValueOnKeyChange
	cfg.disableAutoFetch = cfg.disableAutoFetch || opts.DisableAutoFetch

	q := &Query[V]{
		e:          e,
		consumerID: uuid.NewString(),
		fetcher:    fetcher,
		cfg:        cfg,
		opts:       opts,
	}
	key = key.clone()
	auto := !cfg.disableAutoFetch

	q.mu.Lock()
	q.bindLocked(key, id, true)
	q.st.IsFetching = auto
	q.st.IsLoading = auto && !q.st.HasData
	q.armStaleTimerLocked()
	q.mu.Unlock()

	if err := e.Subscribe(key, q.subscriber(id)); err != nil {
		q.stop()
		return nil, err
	}
	if auto {
		_ = q.issue(key, id, nil)
	}
	return q, nil
}

// ID is the consumer identity used in the subscription registry.
func (q *Query[V]) ID() string { return q.consumerID }

func (q *Query[V]) Key() Key {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.key
}

func (q *Query[V]) State() State[V] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.st
}

// Refetch fetches the current key with param, unless a request for it is
// already outstanding; the result then arrives through the subscription.
func (q *Query[V]) Refetch(param any) error {
	key, id, err := q.beginFetch()
	if err != nil {
		return err
	}
	return q.issue(key, id, param)
}

// ForceRefetch forgets any outstanding request for the key and fetches anew.
// The older request keeps running but its result is discarded.
func (q *Query[V]) ForceRefetch(param any) error {
	key, id, err := q.beginFetch()
	if err != nil {
		return err
	}
	q.e.dropMarker(id)
	q.guard.Cancel()
	return q.issue(key, id, param)
}

// SetKey moves the query to another key. Results for the old key are ignored
// from here on. The current value is kept unless DropValueOnKeyChange is set,
// in which case the query reseeds from the cache.
func (q *Query[V]) SetKey(key Key) error {
	id, err := key.identity()
	if err != nil {
		return err
	}
	key = key.clone()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	if id == q.ident {
		q.mu.Unlock()
		return nil
	}
	old := q.ident
	q.guard.Cancel()
	drop := q.cfg.dropValueOnKeyChange
	q.bindLocked(key, id, drop)
	auto := !q.cfg.disableAutoFetch
	if auto {
		q.st.IsLoading = !q.st.HasData
		q.st.IsFetching = true
		q.st.IsStale, q.st.IsError, q.st.IsInvalidating = false, false, false
		q.st.Err = nil
	}
	if drop {
		q.armStaleTimerLocked()
	}
	notify := q.changedLocked()
	q.mu.Unlock()

	q.e.unsubscribe(old, q.consumerID)
	if err := q.e.Subscribe(key, q.subscriber(id)); err != nil {
		return err
	}
	notify()
	if auto {
		return q.issue(key, id, nil)
	}
	return nil
}

// Close unsubscribes the query. It is safe to call more than once.
func (q *Query[V]) Close() {
	id, ok := q.stop()
	if !ok {
		return
	}
	q.e.unsubscribe(id, q.consumerID)
	q.guard.Cancel()
}

func (q *Query[V]) stop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return "", false
	}
	q.closed = true
	q.timerSeq++
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	return q.ident, true
}

func (q *Query[V]) beginFetch() (Key, string, error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, "", ErrClosed
	}
	q.st.IsLoading = false
	q.st.IsFetching = true
	q.st.IsStale, q.st.IsError = false, false
	q.st.Err = nil
	key, id := q.key, q.ident
	notify := q.changedLocked()
	q.mu.Unlock()
	notify()
	return key, id, nil
}

// issue runs the engine fetch protocol. Engine errors (closed, token source
// down) surface as query errors since no broadcast will follow.
func (q *Query[V]) issue(key Key, id string, param any) error {
	_, err := q.e.fetch(id, key, &q.guard, q.fetcher, param)
	if err == nil {
		return nil
	}
	q.mu.Lock()
	if id == q.ident {
		q.clearFetchingLocked()
		q.st.Err, q.st.IsError = err, true
	}
	notify := q.changedLocked()
	q.mu.Unlock()
	notify()
	return err
}

func (q *Query[V]) subscriber(id string) Subscriber {
	return Subscriber{
		ID:           q.consumerID,
		OnData:       q.onData(id),
		OnInvalidate: q.onInvalidate(id),
		OnCancel:     q.onCancel(id),
	}
}

// onData applies a broadcast when the query is fetching, its view is stale
// (and sync is on), this is its first event for the key, or it is a mutation.
func (q *Query[V]) onData(id string) DataFunc {
	return func(value any, kind Outcome, reason error) {
		q.mu.Lock()
		if q.closed || id != q.ident {
			q.mu.Unlock()
			return
		}
		now := q.e.now()
		stale := q.st.IsStale || StaleAt(q.cfg.staleTime, q.st.UpdatedAt, now)
		initial := q.initial
		q.initial = false

		if !(q.st.IsFetching || (stale && !q.cfg.disableSync) || initial || kind == Mutate) {
			q.mu.Unlock()
			return
		}

		var after []func()
		switch kind {
		case Fail:
			after = q.failLocked(reason, stale)
		default:
			v, ok, err := store.DecodeAs[V](value)
			if err != nil {
				q.e.log.Warn("published value does not fit query", Fields{"key": id, "err": err.Error()})
				after = q.failLocked(err, stale)
				break
			}
			q.st.Data, q.st.HasData = v, ok
			q.st.Err, q.st.IsError, q.st.IsStale = nil, false, false
			q.st.UpdatedAt = now
			if kind == Mutate {
				if fn := q.opts.OnMutated; fn != nil {
					after = append(after, func() { fn(v) })
				}
				break
			}
			q.clearFetchingLocked()
			if fn := q.opts.OnSuccess; fn != nil {
				after = append(after, func() { fn(v) })
			}
			if fn := q.opts.OnSettled; fn != nil {
				after = append(after, func() { fn(v, nil) })
			}
		}
		q.armStaleTimerLocked()
		after = append(after, q.changedLocked())
		q.mu.Unlock()

		for _, fn := range after {
			fn()
		}
	}
}

// failLocked records err without touching Data.
func (q *Query[V]) failLocked(err error, stale bool) []func() {
	q.st.Err, q.st.IsError = err, true
	q.st.IsStale = stale
	q.clearFetchingLocked()

	var after []func()
	if fn := q.opts.OnError; fn != nil {
		after = append(after, func() { fn(err) })
	}
	if fn := q.opts.OnSettled; fn != nil {
		data := q.st.Data
		after = append(after, func() { fn(data, err) })
	}
	return after
}

func (q *Query[V]) onInvalidate(id string) func() {
	return func() {
		q.mu.Lock()
		if q.closed || id != q.ident {
			q.mu.Unlock()
			return
		}
		if q.opts.manualInvalidate {
			q.st.IsStale = true
			notify := q.changedLocked()
			q.mu.Unlock()
			notify()
			return
		}
		q.st.IsLoading = false
		q.st.IsFetching, q.st.IsInvalidating = true, true
		q.st.IsStale, q.st.IsError = false, false
		q.st.Err = nil
		key := q.key
		notify := q.changedLocked()
		q.mu.Unlock()

		notify()
		_ = q.issue(key, id, nil)
	}
}

func (q *Query[V]) onCancel(id string) func() {
	return func() {
		q.mu.Lock()
		if q.closed || id != q.ident {
			q.mu.Unlock()
			return
		}
		notify := func() {}
		if q.st.IsFetching {
			q.clearFetchingLocked()
			q.st.IsStale, q.st.IsError = false, false
			notify = q.changedLocked()
		}
		q.mu.Unlock()

		q.guard.Cancel()
		notify()
	}
}

func (q *Query[V]) bindLocked(key Key, id string, seed bool) {
	q.key, q.ident = key, id
	q.st.Key = key
	q.initial = true
	if !seed {
		return
	}

	var zero V
	q.st.Data, q.st.HasData, q.st.IsStale = zero, false, false
	q.st.UpdatedAt = time.Time{}

	ent, ok := q.e.seed(q.e.ctx, id, q.cfg.cacheTime, q.cfg.keepCacheAlways)
	if !ok {
		return
	}
	v, ok, err := store.DecodeAs[V](ent.Value)
	if err != nil {
		q.e.log.Warn("cached value does not fit query", Fields{"key": id, "err": err.Error()})
		return
	}
	if !ok {
		return
	}
	q.st.Data, q.st.HasData = v, true
	q.st.UpdatedAt = ent.WrittenAt
	q.st.IsStale = StaleAt(q.cfg.staleTime, ent.WrittenAt, q.e.now())
}

func (q *Query[V]) clearFetchingLocked() {
	q.st.IsFetching, q.st.IsLoading, q.st.IsInvalidating = false, false, false
}

// armStaleTimerLocked flips IsStale once the current data ages past StaleTime.
func (q *Query[V]) armStaleTimerLocked() {
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	q.timerSeq++
	now := q.e.now()
	ref := q.st.UpdatedAt
	if ref.IsZero() {
		ref = now
	}
	d, ok := staleIn(q.cfg.staleTime, ref, now)
	if !ok {
		return
	}
	seq := q.timerSeq
	q.timer = time.AfterFunc(d, func() { q.markStale(seq) })
}

func (q *Query[V]) markStale(seq uint64) {
	q.mu.Lock()
	if q.closed || seq != q.timerSeq || q.st.IsStale {
		q.mu.Unlock()
		return
	}
	q.st.IsStale = true
	notify := q.changedLocked()
	q.mu.Unlock()
	notify()
}

// changedLocked snapshots the state for OnChange; call the result unlocked.
func (q *Query[V]) changedLocked() func() {
	fn := q.opts.OnChange
	if fn == nil {
		return func() {}
	}
	s := q.st
	return func() { fn(s) }
}
