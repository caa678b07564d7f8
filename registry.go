package querysync

import "slices"

// DataFunc receives every outcome published for a key. reason is the failure
// cause for Fail outcomes and nil otherwise.
type DataFunc func(value any, kind Outcome, reason error)

// Subscriber is one consumer's callback bundle for a key.
type Subscriber struct {
	ID           string
	OnData       DataFunc
	OnInvalidate func() // optional
	OnCancel     func() // optional
}

// registry keeps subscribers per key identity in registration order.
// Callers hold Engine.mu.
type registry struct {
	subs map[string][]Subscriber
}

func newRegistry() *registry {
	return &registry{subs: make(map[string][]Subscriber)}
}

// subscribe is a no-op when (key, id) is already registered; the first
// registration wins.
func (r *registry) subscribe(key string, s Subscriber) bool {
	list := r.subs[key]
	for _, cur := range list {
		if cur.ID == s.ID {
			return false
		}
	}
	r.subs[key] = append(list, s)
	return true
}

func (r *registry) unsubscribe(key, id string) bool {
	list, ok := r.subs[key]
	if !ok {
		return false
	}
	i := slices.IndexFunc(list, func(s Subscriber) bool { return s.ID == id })
	if i < 0 {
		return false
	}
	if len(list) == 1 {
		delete(r.subs, key)
		return true
	}
	r.subs[key] = slices.Delete(list, i, i+1)
	return true
}

func (r *registry) subscribed(key, id string) bool {
	return slices.ContainsFunc(r.subs[key], func(s Subscriber) bool { return s.ID == id })
}

// The accessors below return fresh slices so callers can invoke them after
// releasing the lock. nil means no subscribers.

func (r *registry) dataFuncs(key string) []DataFunc {
	list := r.subs[key]
	if len(list) == 0 {
		return nil
	}
	out := make([]DataFunc, len(list))
	for i, s := range list {
		out[i] = s.OnData
	}
	return out
}

func (r *registry) invalidateFuncs(key string) []func() {
	return r.collect(key, func(s Subscriber) func() { return s.OnInvalidate })
}

func (r *registry) cancelFuncs(key string) []func() {
	return r.collect(key, func(s Subscriber) func() { return s.OnCancel })
}

func (r *registry) collect(key string, pick func(Subscriber) func()) []func() {
	list := r.subs[key]
	if len(list) == 0 {
		return nil
	}
	out := make([]func(), 0, len(list))
	for _, s := range list {
		if fn := pick(s); fn != nil {
			out = append(out, fn)
		}
	}
	return out
}

func (r *registry) count(key string) int { return len(r.subs[key]) }

func (r *registry) keys() int { return len(r.subs) }
