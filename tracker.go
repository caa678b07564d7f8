package querysync

import "context"

// marker is an in-flight request. token is 0 while the request is reserved
// and its token is still being drawn.
type marker struct {
	ticket uint64
	token  uint64
	cancel context.CancelFunc
}

// tracker holds at most one in-flight marker per key identity.
// Callers hold Engine.mu.
type tracker struct {
	markers map[string]marker
	tickets uint64
}

func newTracker() *tracker {
	return &tracker{markers: make(map[string]marker)}
}

// reserve overwrites any previous marker for key with one that has no token
// yet. The older request keeps running; its result fails matchesCurrent and
// is dropped. The returned ticket identifies the reservation.
func (t *tracker) reserve(key string, cancel context.CancelFunc) uint64 {
	t.tickets++
	t.markers[key] = marker{ticket: t.tickets, cancel: cancel}
	return t.tickets
}

// confirm attaches token to the reservation. It reports false when the
// reservation was ended or replaced meanwhile.
func (t *tracker) confirm(key string, ticket, token uint64) bool {
	m, ok := t.markers[key]
	if !ok || m.ticket != ticket || m.token != 0 {
		return false
	}
	m.token = token
	t.markers[key] = m
	return true
}

// abandon drops the reservation if it is still the current marker.
func (t *tracker) abandon(key string, ticket uint64) {
	if m, ok := t.markers[key]; ok && m.ticket == ticket {
		delete(t.markers, key)
	}
}

func (t *tracker) end(key string) (marker, bool) {
	m, ok := t.markers[key]
	if ok {
		delete(t.markers, key)
	}
	return m, ok
}

// endIf clears the marker only while it still carries token.
func (t *tracker) endIf(key string, token uint64) bool {
	if !t.matchesCurrent(key, token) {
		return false
	}
	delete(t.markers, key)
	return true
}

func (t *tracker) isOutstanding(key string) bool {
	_, ok := t.markers[key]
	return ok
}

func (t *tracker) matchesCurrent(key string, token uint64) bool {
	m, ok := t.markers[key]
	return ok && m.token != 0 && m.token == token
}

func (t *tracker) len() int { return len(t.markers) }
