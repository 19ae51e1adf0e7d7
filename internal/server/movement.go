package server

import (
	"time"
)

type tickerFactory func(time.Duration) (<-chan time.Time, func())

type timeSource func() time.Time

func defaultTickerFactory() tickerFactory {
	return func(d time.Duration) (<-chan time.Time, func()) {
		ticker := time.NewTicker(d)
		return ticker.C, ticker.Stop
	}
}

// movementClock turns ticker timestamps into integration steps. Steps that
// are non-positive or longer than ten ticks, as after a stall, collapse to a
// single tick so the player never tunnels through terrain.
type movementClock struct {
	tick time.Duration
	last time.Time
}

func newMovementClock(tick time.Duration, start time.Time) *movementClock {
	if tick <= 0 {
		tick = 16 * time.Millisecond
	}
	return &movementClock{tick: tick, last: start}
}

func (m *movementClock) step(now time.Time) time.Duration {
	delta := now.Sub(m.last)
	if delta <= 0 {
		delta = m.tick
	} else if delta > 10*m.tick {
		delta = m.tick
	}
	m.last = now
	return delta
}
