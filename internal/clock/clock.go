// Package clock abstracts time so SLA arithmetic and the escalation
// poller can be driven deterministically in tests.
package clock

import (
	"sync"
	"time"
)

// Clock is the time source used by services and workers.
type Clock interface {
	Now() time.Time
	// NewTicker returns a channel that ticks every d and a stop function.
	NewTicker(d time.Duration) (<-chan time.Time, func())
}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// FakeClock stands still until Set or Advance is called. Tickers fire
// once per Advance call that crosses their next deadline.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	tickers []*fakeTicker
}

type fakeTicker struct {
	ch       chan time.Time
	interval time.Duration
	next     time.Time
	stopped  bool
}

// Fake returns a FakeClock initialized to the given time.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial}
}

// Now returns the fake current time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Set moves the clock to t. Tickers are not fired.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}

// Advance moves the clock forward and delivers at most one tick to each
// ticker whose deadline was crossed. Ticks are dropped if the consumer
// has not drained the previous one.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	for _, t := range c.tickers {
		if t.stopped || c.current.Before(t.next) {
			continue
		}
		for !c.current.Before(t.next) {
			t.next = t.next.Add(t.interval)
		}
		select {
		case t.ch <- c.current:
		default:
		}
	}
}

// NewTicker registers a ticker driven by Advance.
func (c *FakeClock) NewTicker(d time.Duration) (<-chan time.Time, func()) {
	if d <= 0 {
		panic("clock: non-positive ticker interval")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{ch: make(chan time.Time, 1), interval: d, next: c.current.Add(d)}
	c.tickers = append(c.tickers, t)
	return t.ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		t.stopped = true
	}
}
