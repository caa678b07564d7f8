package querysync

import "testing"

// beginForTest reserves key and confirms token in one step.
func (t *tracker) beginForTest(key string, token uint64) uint64 {
	ticket := t.reserve(key, nil)
	t.confirm(key, ticket, token)
	return ticket
}

func TestTrackerLifecycle(t *testing.T) {
	tr := newTracker()
	if tr.isOutstanding("k") {
		t.Fatalf("fresh tracker has a marker")
	}

	tr.beginForTest("k", 1)
	if !tr.isOutstanding("k") || !tr.matchesCurrent("k", 1) {
		t.Fatalf("marker for token 1 missing")
	}

	// newer request supersedes the bookkeeping of the older one
	tr.beginForTest("k", 2)
	if tr.matchesCurrent("k", 1) {
		t.Fatalf("token 1 should no longer match")
	}
	if !tr.matchesCurrent("k", 2) {
		t.Fatalf("token 2 should match")
	}
	if tr.endIf("k", 1) {
		t.Fatalf("endIf with old token must not clear the newer marker")
	}
	if !tr.isOutstanding("k") {
		t.Fatalf("marker cleared by stale token")
	}
	if !tr.endIf("k", 2) {
		t.Fatalf("endIf with current token should clear")
	}

	tr.beginForTest("k", 3)
	if _, ok := tr.end("k"); !ok {
		t.Fatalf("end should report the marker was present")
	}
	if _, ok := tr.end("k"); ok {
		t.Fatalf("second end should report absent")
	}
	if tr.matchesCurrent("k", 3) || tr.len() != 0 {
		t.Fatalf("tracker not empty after end")
	}
}

func TestTrackerReservation(t *testing.T) {
	tr := newTracker()

	ticket := tr.reserve("k", nil)
	if !tr.isOutstanding("k") {
		t.Fatalf("a reservation counts as outstanding")
	}
	if tr.matchesCurrent("k", 0) {
		t.Fatalf("a reservation has no token to match")
	}
	if !tr.confirm("k", ticket, 7) || !tr.matchesCurrent("k", 7) {
		t.Fatalf("confirm should attach the token")
	}
	if tr.confirm("k", ticket, 8) {
		t.Fatalf("a confirmed reservation cannot be confirmed again")
	}

	// replaced while the token was being drawn
	old := tr.reserve("j", nil)
	newer := tr.reserve("j", nil)
	if tr.confirm("j", old, 9) {
		t.Fatalf("confirm on a replaced reservation succeeded")
	}
	tr.abandon("j", old)
	if !tr.isOutstanding("j") {
		t.Fatalf("abandoning a replaced reservation removed the newer one")
	}
	tr.abandon("j", newer)
	if tr.isOutstanding("j") {
		t.Fatalf("abandon left the reservation in place")
	}
}

func TestRaceGuard(t *testing.T) {
	var g RaceGuard
	k1, k2 := K("a"), K("b")
	if g.IsActive(k1) {
		t.Fatalf("zero guard names no key")
	}

	g.SetActive(k1)
	if !g.IsActive(k1) || g.IsActive(k2) {
		t.Fatalf("guard should name only k1")
	}

	// settling k2 must not clear a guard pointed at k1
	g.cancelIf(k2.String())
	if !g.IsActive(k1) {
		t.Fatalf("cancelIf on another key cleared the guard")
	}
	g.cancelIf(k1.String())
	if g.IsActive(k1) {
		t.Fatalf("cancelIf on the active key should clear")
	}

	g.SetActive(k2)
	g.Cancel()
	if g.IsActive(k2) {
		t.Fatalf("Cancel should clear")
	}

	var nilGuard *RaceGuard
	nilGuard.cancelIf("x")
	if !nilGuard.isActiveOrNil("x") {
		t.Fatalf("nil guard counts as active")
	}
}

func TestRaceGuardsAreIndependent(t *testing.T) {
	var a, b RaceGuard
	k := K("user", 1)
	a.SetActive(k)
	b.SetActive(k)
	a.Cancel()
	if !b.IsActive(k) {
		t.Fatalf("canceling one consumer's guard affected a sibling")
	}
}
