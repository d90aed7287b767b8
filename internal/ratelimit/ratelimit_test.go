package ratelimit

import (
	"testing"
	"time"
)

func TestAllow_WithinWindowRejected(t *testing.T) {
	base := time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC)
	l := New(2 * time.Second)

	if !l.Allow(1, base) {
		t.Fatalf("Allow(t=0) = false, want true")
	}
	if l.Allow(1, base.Add(1*time.Second)) {
		t.Fatalf("Allow(t=1, window=2) = true, want false")
	}
}

func TestAllow_OutsideWindowAccepted(t *testing.T) {
	base := time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC)
	l := New(2 * time.Second)

	if !l.Allow(1, base) {
		t.Fatalf("Allow(t=0) = false, want true")
	}
	if !l.Allow(1, base.Add(3*time.Second)) {
		t.Fatalf("Allow(t=3, window=2) = false, want true")
	}
}

func TestAllow_RejectionDoesNotRefreshWindow(t *testing.T) {
	base := time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC)
	l := New(2 * time.Second)

	l.Allow(1, base)
	// Rejected events at t=1 and t=1.5 must not push the window forward.
	l.Allow(1, base.Add(1*time.Second))
	l.Allow(1, base.Add(1500*time.Millisecond))
	if !l.Allow(1, base.Add(2*time.Second)) {
		t.Fatalf("Allow(t=2) = false, want true after only rejected events")
	}
}

func TestAllow_SessionsIndependent(t *testing.T) {
	base := time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC)
	l := New(2 * time.Second)

	l.Allow(1, base)
	if !l.Allow(2, base.Add(100*time.Millisecond)) {
		t.Fatalf("Allow(other session) = false, want true")
	}
}

func TestEvict_DropsIdleEntries(t *testing.T) {
	base := time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC)
	l := New(2 * time.Second)

	l.Allow(1, base)
	l.Allow(2, base.Add(30*time.Minute))

	removed := l.Evict(base.Add(1*time.Hour), 45*time.Minute)
	if removed != 1 {
		t.Fatalf("Evict() removed = %d, want 1", removed)
	}
	// Evicted session starts fresh.
	if !l.Allow(1, base.Add(time.Hour)) {
		t.Fatalf("Allow(evicted session) = false, want true")
	}
}
