package querysync

import (
	"math"
	"time"
)

// NeverStale is a freshness window that never elapses.
const NeverStale time.Duration = math.MaxInt64

// IsStale reports whether a value written at ref is older than window.
func IsStale(window time.Duration, ref time.Time) bool {
	return StaleAt(window, ref, time.Now())
}

// StaleAt is IsStale evaluated at now: true iff now - ref >= window.
// A NeverStale window is never stale; a negative window always is.
func StaleAt(window time.Duration, ref, now time.Time) bool {
	if window == NeverStale {
		return false
	}
	// Sub saturates, so a zero ref is as old as it gets.
	return now.Sub(ref) >= window
}

// staleIn returns how long until a value written at ref goes stale, or
// (0, false) when it never will.
func staleIn(window time.Duration, ref, now time.Time) (time.Duration, bool) {
	if window == NeverStale {
		return 0, false
	}
	d := window - now.Sub(ref)
	if d < 0 {
		d = 0
	}
	return d, true
}
