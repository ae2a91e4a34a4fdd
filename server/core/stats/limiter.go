package stats

import (
	"golang.org/x/sync/semaphore"
)

// Limiter bounds the number of extractions that may run at the same time.
type Limiter interface {
	// TryAcquire reserves a slot without blocking and reports whether it succeeded
	TryAcquire() bool
	Release()
}

type unlimited struct{}

// Unlimited is a Limiter that always admits.
var Unlimited Limiter = unlimited{}

func (unlimited) TryAcquire() bool { return true }
func (unlimited) Release()         {}

type weightedLimiter struct {
	sem *semaphore.Weighted
}

// NewLimiter returns a Limiter admitting at most max concurrent holders.
// A max of zero or less disables limiting.
func NewLimiter(max int) Limiter {
	if max <= 0 {
		return Unlimited
	}
	return &weightedLimiter{sem: semaphore.NewWeighted(int64(max))}
}

func (l *weightedLimiter) TryAcquire() bool {
	return l.sem.TryAcquire(1)
}

func (l *weightedLimiter) Release() {
	l.sem.Release(1)
}
