package stats

import (
	"sync"
	"sync/atomic"
)

// InFlightCounter tracks how many requests are currently being processed.
type InFlightCounter struct {
	current atomic.Int64
	// onChange receives the new value after every change; used to mirror the count into metrics
	onChange func(int64)
}

// NewInFlightCounter creates a counter. onChange may be nil.
func NewInFlightCounter(onChange func(int64)) *InFlightCounter {
	if onChange == nil {
		onChange = func(int64) {}
	}
	return &InFlightCounter{onChange: onChange}
}

// Token is returned by Enter and must be released exactly once with Exit.
type Token struct {
	counter *InFlightCounter
	once    sync.Once
}

// Enter increments the counter and returns the token that undoes it
func (c *InFlightCounter) Enter() *Token {
	c.onChange(c.current.Add(1))
	return &Token{counter: c}
}

// Exit decrements the counter. Further calls are no-ops, so it is safe to
// defer Exit and also call it early.
func (t *Token) Exit() {
	t.once.Do(func() {
		t.counter.onChange(t.counter.current.Add(-1))
	})
}

// Snapshot returns the current number of requests in flight
func (c *InFlightCounter) Snapshot() int64 {
	return c.current.Load()
}
