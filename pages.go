package querysync

import (
	"context"
	"math"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/unkn0wn-root/querysync/store"
)

// pagesSuffix is the key part that separates the accumulated sequence from
// the plain single-page cache entry.
const pagesSuffix = "infinite"

// PageState is a point-in-time view of a Pages accumulator.
type PageState[P any] struct {
	Key   Key
	Pages []P
	Err   error

	IsError                bool
	IsFetching             bool
	IsLoading              bool
	IsFetchingNextPage     bool
	IsFetchingPreviousPage bool
	HasNextPage            bool
	HasPreviousPage        bool
}

type PageOptions[P any] struct {
	StaleTime       time.Duration
	CacheTime       time.Duration
	KeepCacheAlways bool

	// GetNextPageParam returns the cursor for the page after last; nil (typed
	// or not) or NaN means there is none. last is the zero P when no page is loaded.
	GetNextPageParam func(last P, pages []P) any
	// GetPrevPageParam returns the cursor for the page before first. Only a
	// NaN cursor makes a previous page eligible.
	GetPrevPageParam func(first P, pages []P) any
	// OnReset runs at the end of Reset with a function to fetch a first page.
	OnReset func(fetchPage func(param any) error)

	OnSuccess func(pages []P)
	OnError   func(err error)
	OnMutated func(pages []P)
	OnChange  func(s PageState[P])
}

type direction uint8

const (
	dirNone direction = iota
	dirNext
	dirPrev
)

// Pages accumulates pages fetched for one key into an ordered sequence.
// The sequence is cached under key + "infinite"; the plain key entry written
// by each page fetch is evicted once the page has been taken.
type Pages[P any] struct {
	e       *Engine
	q       *Query[P]
	key     Key
	plainID string
	cacheID string
	opts    PageOptions[P]

	mu        sync.Mutex
	pages     []P
	pending   direction
	fetchNext bool
	fetchPrev bool
	loading   bool
	hasNext   bool
	hasPrev   bool
	err       error
}

// NewPages builds an accumulator for key. When nothing is cached it fetches
// the first page through GetNextPageParam.
func NewPages[P any](e *Engine, key Key, fetcher Fetcher, opts PageOptions[P]) (*Pages[P], error) {
	if e == nil {
		return nil, invalid("engine", "nil", ErrNilEngine)
	}
	plainID, err := key.identity()
	if err != nil {
		return nil, err
	}
	key = key.clone()
	cacheKey := key.With(pagesSuffix)

	p := &Pages[P]{
		e:       e,
		key:     key,
		plainID: plainID,
		cacheID: cacheKey.String(),
		opts:    opts,
	}

	cacheTime := coalesce[time.Duration](opts.CacheTime, e.def.cacheTime)
	keep := opts.KeepCacheAlways || e.def.keepCacheAlways
	if ent, ok := e.seed(e.ctx, p.cacheID, cacheTime, keep); ok {
		pages, ok, err := store.DecodeAs[[]P](ent.Value)
		switch {
		case err != nil:
			e.log.Warn("cached pages do not fit", Fields{"key": p.cacheID, "err": err.Error()})
		case ok:
			p.pages = pages
		}
	}

	q, err := NewQuery[P](e, key, fetcher, QueryOptions[P]{
		StaleTime:        opts.StaleTime,
		CacheTime:        opts.CacheTime,
		KeepCacheAlways:  opts.KeepCacheAlways,
		DisableSync:      true,
		DisableAutoFetch: true,
		OnSuccess:        func(page P) { p.onPage(page, false) },
		OnMutated:        func(page P) { p.onPage(page, true) },
		OnError:          p.onError,
		manualInvalidate: true,
	})
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.q = q
	p.recomputeLocked(p.pages)
	empty := len(p.pages) == 0
	p.mu.Unlock()

	if empty {
		p.FetchNextPage()
	}
	return p, nil
}

func (p *Pages[P]) State() PageState[P] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateLocked()
}

// FetchNextPage fetches the page after the last one. It reports false and
// does nothing when GetNextPageParam is unset or yields no cursor. It also
// reports false when the fetch could not be issued; the error is then in
// State and passed to OnError.
func (p *Pages[P]) FetchNextPage() bool {
	if p.opts.GetNextPageParam == nil {
		return false
	}
	pages := p.snapshot()
	var last P
	if len(pages) > 0 {
		last = pages[len(pages)-1]
	}
	cursor := p.opts.GetNextPageParam(last, pages)
	if !hasNextCursor(cursor) {
		return false
	}
	return p.request(dirNext, len(pages) == 0, cursor)
}

// FetchPrevPage fetches the page before the first one, which is prepended.
func (p *Pages[P]) FetchPrevPage() bool {
	if p.opts.GetPrevPageParam == nil {
		return false
	}
	pages := p.snapshot()
	var first P
	if len(pages) > 0 {
		first = pages[0]
	}
	cursor := p.opts.GetPrevPageParam(first, pages)
	if !hasPrevCursor(cursor) {
		return false
	}
	return p.request(dirPrev, len(pages) == 0, cursor)
}

// FetchPage fetches a page for an explicit cursor and appends it.
func (p *Pages[P]) FetchPage(param any) error {
	p.mu.Lock()
	p.pending = dirNext
	p.mu.Unlock()
	if err := p.q.Refetch(param); err != nil {
		p.onError(err)
		return err
	}
	return nil
}

// Reset evicts the accumulated and the plain cache entries, empties the
// sequence and invalidates the key so plain consumers refresh too.
func (p *Pages[P]) Reset(ctx context.Context) error {
	if err := p.e.evict(ctx, p.cacheID); err != nil {
		return err
	}
	if err := p.e.evict(ctx, p.plainID); err != nil {
		return err
	}

	p.mu.Lock()
	p.pages = nil
	p.pending = dirNone
	p.fetchNext, p.fetchPrev, p.loading = false, false, false
	notify := p.changedLocked()
	p.mu.Unlock()
	notify()

	if err := p.e.Invalidate(p.key); err != nil {
		return err
	}
	if fn := p.opts.OnReset; fn != nil {
		fn(p.FetchPage)
	}
	return nil
}

func (p *Pages[P]) Close() { p.q.Close() }

// request marks dir as pending before issuing, so the broadcast that answers
// it is never mistaken for one nobody asked for. A fetch that cannot be
// issued settles right away as an error.
func (p *Pages[P]) request(dir direction, empty bool, cursor any) bool {
	p.mu.Lock()
	p.pending = dir
	p.loading = empty
	if dir == dirPrev {
		p.fetchPrev = true
	} else {
		p.fetchNext = true
	}
	notify := p.changedLocked()
	p.mu.Unlock()
	notify()

	if err := p.q.Refetch(cursor); err != nil {
		p.onError(err)
		return false
	}
	return true
}

// onPage folds one page into a copy of the sequence. Fetched pages go where
// the pending request asked for; mutations always append. A fetched page
// nobody here asked for is ignored.
func (p *Pages[P]) onPage(page P, mutated bool) {
	p.mu.Lock()
	dir := p.pending
	if !mutated && dir == dirNone {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	ctx := p.e.ctx
	_ = p.e.evict(ctx, p.plainID)

	p.mu.Lock()
	next := make([]P, 0, len(p.pages)+1)
	if !mutated && dir == dirPrev {
		next = append(next, page)
		next = append(next, p.pages...)
	} else {
		next = append(next, p.pages...)
		next = append(next, page)
	}
	p.pages = next
	p.pending = dirNone
	p.err = nil
	p.recomputeLocked(next)
	notify := p.changedLocked()
	p.mu.Unlock()

	p.e.write(ctx, p.cacheID, slices.Clone(next))

	if mutated {
		if fn := p.opts.OnMutated; fn != nil {
			fn(slices.Clone(next))
		}
	} else if fn := p.opts.OnSuccess; fn != nil {
		fn(slices.Clone(next))
	}
	notify()
}

func (p *Pages[P]) onError(err error) {
	p.mu.Lock()
	p.err = err
	p.pending = dirNone
	p.recomputeLocked(p.pages)
	notify := p.changedLocked()
	p.mu.Unlock()

	if fn := p.opts.OnError; fn != nil {
		fn(err)
	}
	notify()
}

// recomputeLocked also clears the fetching flags; user cursor functions run
// under the lock and must not call back into p.
func (p *Pages[P]) recomputeLocked(pages []P) {
	p.fetchNext, p.fetchPrev, p.loading = false, false, false
	p.hasNext, p.hasPrev = false, false
	if len(pages) == 0 {
		return
	}
	if fn := p.opts.GetNextPageParam; fn != nil {
		p.hasNext = hasNextCursor(fn(pages[len(pages)-1], pages))
	}
	if fn := p.opts.GetPrevPageParam; fn != nil {
		p.hasPrev = hasPrevCursor(fn(pages[0], pages))
	}
}

func (p *Pages[P]) snapshot() []P {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.pages)
}

func (p *Pages[P]) stateLocked() PageState[P] {
	var qs State[P]
	if p.q != nil {
		qs = p.q.State()
	}
	return PageState[P]{
		Key:                    p.key,
		Pages:                  slices.Clone(p.pages),
		Err:                    p.err,
		IsError:                p.err != nil,
		IsFetching:             qs.IsFetching,
		IsLoading:              p.loading,
		IsFetchingNextPage:     p.fetchNext,
		IsFetchingPreviousPage: p.fetchPrev,
		HasNextPage:            p.hasNext,
		HasPreviousPage:        p.hasPrev,
	}
}

func (p *Pages[P]) changedLocked() func() {
	fn := p.opts.OnChange
	if fn == nil {
		return func() {}
	}
	s := p.stateLocked()
	return func() { fn(s) }
}

func hasNextCursor(c any) bool { return !isNil(c) && !isNaN(c) }

func hasPrevCursor(c any) bool { return !isNil(c) && isNaN(c) }

// isNil also treats typed nils (a nil *int, map or slice) as no cursor.
func isNil(c any) bool {
	if c == nil {
		return true
	}
	switch v := reflect.ValueOf(c); v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}

func isNaN(c any) bool {
	switch v := c.(type) {
	case float64:
		return math.IsNaN(v)
	case float32:
		return math.IsNaN(float64(v))
	default:
		return false
	}
}
