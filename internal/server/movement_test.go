package server

import (
	"testing"
	"time"
)

func TestMovementClockClampsDelta(t *testing.T) {
	tick := 10 * time.Millisecond
	base := time.Unix(0, 0)
	clock := newMovementClock(tick, base)

	steps := []struct {
		at   time.Time
		want time.Duration
	}{
		{base.Add(tick), tick},                        // normal interval
		{base.Add(tick), tick},                        // zero delta -> clamp
		{base.Add(3 * tick), 2 * tick},                // late tick is honoured
		{base.Add(30 * tick), tick},                   // oversized delta -> clamp
		{base.Add(29 * tick), tick},                   // clock went backwards -> clamp
		{base.Add(29*tick + 5*time.Millisecond), 5 * time.Millisecond},
	}
	for i, step := range steps {
		if got := clock.step(step.at); got != step.want {
			t.Fatalf("step %d delta = %v, want %v", i, got, step.want)
		}
	}
}

func TestMovementClockDefaults(t *testing.T) {
	clock := newMovementClock(0, time.Unix(0, 0))
	if clock.tick != 16*time.Millisecond {
		t.Fatalf("default tick duration = %v, want 16ms", clock.tick)
	}
	if factory := defaultTickerFactory(); factory == nil {
		t.Fatalf("expected ticker factory")
	}
}
