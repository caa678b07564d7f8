package querysync

import (
	"testing"
	"time"
)

func TestStaleAt(t *testing.T) {
	t0 := time.Unix(0, 0)
	tests := []struct {
		name   string
		window time.Duration
		now    time.Time
		want   bool
	}{
		{"before window", 10 * time.Second, t0.Add(9 * time.Second), false},
		{"at window", 10 * time.Second, t0.Add(10 * time.Second), true},
		{"past window", 10 * time.Second, t0.Add(time.Hour), true},
		{"just written", 10 * time.Second, t0, false},
		{"never stale", NeverStale, t0.Add(100 * 365 * 24 * time.Hour), false},
		{"negative window", -time.Second, t0, true},
		{"zero window", 0, t0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StaleAt(tt.window, t0, tt.now); got != tt.want {
				t.Fatalf("StaleAt(%v, t0, +%v) = %v, want %v", tt.window, tt.now.Sub(t0), got, tt.want)
			}
		})
	}
}

func TestStaleAtMonotonic(t *testing.T) {
	t0 := time.Unix(1000, 0)
	window := 50 * time.Millisecond
	for d := time.Duration(0); d < 2*window; d += time.Millisecond {
		got := StaleAt(window, t0, t0.Add(d))
		if want := d >= window; got != want {
			t.Fatalf("elapsed %v: stale=%v want %v", d, got, want)
		}
	}
}

func TestZeroReferenceIsStale(t *testing.T) {
	if !IsStale(time.Hour, time.Time{}) {
		t.Fatalf("a value with no write time should be stale")
	}
	if IsStale(NeverStale, time.Time{}) {
		t.Fatalf("NeverStale must win over a zero reference")
	}
}

func TestStaleIn(t *testing.T) {
	t0 := time.Unix(0, 0)
	if d, ok := staleIn(10*time.Second, t0, t0.Add(4*time.Second)); !ok || d != 6*time.Second {
		t.Fatalf("staleIn=%v,%v want 6s,true", d, ok)
	}
	if d, ok := staleIn(10*time.Second, t0, t0.Add(time.Minute)); !ok || d != 0 {
		t.Fatalf("staleIn past window=%v,%v want 0,true", d, ok)
	}
	if _, ok := staleIn(NeverStale, t0, t0); ok {
		t.Fatalf("NeverStale should never arm")
	}
}
