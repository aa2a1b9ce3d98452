// Package ledger implements the season lifecycle and pooled-accounting
// engine: the phase clock, the per-season policy ledger, and the share-based
// vault over a single commingled asset pool. All mutation happens through
// Engine methods, which execute serially under one mutex so every operation
// is atomic with respect to every other.
package ledger

import (
	"sync"
	"time"
)

// Clock supplies the current time to the engine. Production wiring uses
// SystemClock; simulate mode and tests use an OffsetClock so the season
// lifecycle can be driven deterministically.
type Clock interface {
	Now() time.Time
}

// AdjustableClock is a Clock whose notion of now can be moved forward.
// AdvancePhase requires one.
type AdjustableClock interface {
	Clock
	Advance(d time.Duration)
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// OffsetClock layers a mutable forward offset over a base clock. Advancing
// never goes backwards; negative deltas are ignored.
type OffsetClock struct {
	mu     sync.Mutex
	base   Clock
	offset time.Duration
}

// NewOffsetClock creates an OffsetClock over base. If base is nil the system
// clock is used.
func NewOffsetClock(base Clock) *OffsetClock {
	if base == nil {
		base = SystemClock{}
	}
	return &OffsetClock{base: base}
}

// Now returns the base time plus the accumulated offset.
func (c *OffsetClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.base.Now().Add(c.offset)
}

// Advance moves the virtual clock forward by d.
func (c *OffsetClock) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	c.offset += d
	c.mu.Unlock()
}
