package accounting

import "testing"

func TestIsAvailableBoundary(t *testing.T) {
	a := New(200)
	if !a.IsAvailable(200) {
		t.Fatalf("expected exact-fit estimate to be available")
	}
	if a.IsAvailable(201) {
		t.Fatalf("expected over-budget estimate to be rejected")
	}
}

func TestReserveReleaseRoundTrip(t *testing.T) {
	a := New(200)
	a.Reserve(100)
	a.Reserve(50)
	if got := a.UsedMemory(); got != 150 {
		t.Fatalf("used = %d, want 150", got)
	}
	if got := a.AvailableMemory(); got != 50 {
		t.Fatalf("available = %d, want 50", got)
	}
	if a.IsAvailable(100) {
		t.Fatalf("expected 100 to no longer fit with 150 used")
	}
	a.Release(50)
	a.Release(100)
	if got := a.UsedMemory(); got != 0 {
		t.Fatalf("used = %d after round trip, want 0", got)
	}
}

func TestReleaseClampsAtZero(t *testing.T) {
	a := New(10)
	a.Reserve(4)
	a.Release(9)
	if got := a.UsedMemory(); got != 0 {
		t.Fatalf("used = %d, want 0 after over-release", got)
	}
	if got := a.AvailableMemory(); got != 10 {
		t.Fatalf("available = %d, want 10", got)
	}
}
