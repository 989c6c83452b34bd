package testutil

import (
	"sync"
	"time"
)

// ClockEpoch is the instant a DeterministicClock reports at sequence 0.
var ClockEpoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// DeterministicClock is a thread-safe stepping clock for tests.
//
// Every call to Now advances the clock by one second from ClockEpoch, so
// captured timestamps are reproducible across runs. Reset rewinds it for
// test reuse.
type DeterministicClock struct {
	mu  sync.Mutex
	seq int64
}

// NewDeterministicClock creates a new deterministic clock starting at 0.
//
// The first call to Now() returns ClockEpoch plus one second.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Now advances the clock and returns the new instant.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return ClockEpoch.Add(time.Duration(c.seq) * time.Second)
}

// Ticks returns how many times Now has been called since the last reset.
func (c *DeterministicClock) Ticks() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset rewinds the clock to ClockEpoch.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
