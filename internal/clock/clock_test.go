package clock

import (
	"testing"
	"time"
)

func TestFixedClock(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	c := NewFixed(start)
	if !c.Now().Equal(start) {
		t.Fatalf("expected %v, got %v", start, c.Now())
	}
	c.Advance(90 * time.Minute)
	if want := start.Add(90 * time.Minute); !c.Now().Equal(want) {
		t.Fatalf("expected %v after advance, got %v", want, c.Now())
	}
	later := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.Set(later)
	if !c.Now().Equal(later) {
		t.Fatalf("expected %v after set, got %v", later, c.Now())
	}
}

func TestSystemClockMovesForward(t *testing.T) {
	before := time.Now()
	if System().Now().Before(before) {
		t.Fatal("system clock went backwards")
	}
}
