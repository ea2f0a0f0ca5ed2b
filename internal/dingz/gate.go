package dingz

import (
	"sync"
	"time"
)

// Clock is the time source of the request gate. Tests inject a fake to
// observe throttle waits without sleeping.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// gate serialises every request to a device and enforces a minimum
// spacing measured from the previous release.
//
// The throttle wait happens while the gate is held and cannot be
// interrupted; a caller that has acquired the gate always waits out the
// spacing before its request starts.
type gate struct {
	mu          sync.Mutex
	clock       Clock
	minInterval time.Duration
	lastRelease time.Time
}

func newGate(minInterval time.Duration, clock Clock) *gate {
	return &gate{clock: clock, minInterval: minInterval}
}

// acquire blocks until the gate is free and the spacing has elapsed.
func (g *gate) acquire() {
	g.mu.Lock()
	if g.lastRelease.IsZero() || g.minInterval <= 0 {
		return
	}
	if wait := g.minInterval - g.clock.Now().Sub(g.lastRelease); wait > 0 {
		g.clock.Sleep(wait)
	}
}

// release records the release time and frees the gate.
func (g *gate) release() {
	g.lastRelease = g.clock.Now()
	g.mu.Unlock()
}
