package gamestate

import (
	"sync"
	"time"
)

// Clock is the monotonic simulation time source.
type Clock interface {
	Now() time.Duration
}

type SystemClock struct {
	start time.Time
}

func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

func (c *SystemClock) Now() time.Duration {
	return time.Since(c.start)
}

// ManualClock only moves when told to.
type ManualClock struct {
	mu  sync.Mutex
	now time.Duration
}

func NewManualClock(start time.Duration) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Advance(d time.Duration) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
	return c.now
}

func (c *ManualClock) Set(now time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
