package stats

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestInFlightCounter_EnterExit(t *testing.T) {
	var last atomic.Int64
	counter := NewInFlightCounter(func(v int64) { last.Store(v) })

	first := counter.Enter()
	second := counter.Enter()
	if counter.Snapshot() != 2 {
		t.Errorf("Expected 2 in flight, got %d", counter.Snapshot())
	}
	if last.Load() != 2 {
		t.Errorf("Expected observer to see 2, got %d", last.Load())
	}

	first.Exit()
	first.Exit()
	if counter.Snapshot() != 1 {
		t.Errorf("Expected double Exit to decrement once, got %d", counter.Snapshot())
	}

	second.Exit()
	if counter.Snapshot() != 0 {
		t.Errorf("Expected 0 in flight, got %d", counter.Snapshot())
	}
}

func TestInFlightCounter_Concurrent(t *testing.T) {
	counter := NewInFlightCounter(nil)

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token := counter.Enter()
			if counter.Snapshot() < 1 {
				t.Error("Counter must be positive while a token is held")
			}
			defer token.Exit()
		}()
	}
	wg.Wait()

	if counter.Snapshot() != 0 {
		t.Errorf("Expected counter to return to 0, got %d", counter.Snapshot())
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0)
	for i := 0; i < 100; i++ {
		if !limiter.TryAcquire() {
			t.Fatal("Unlimited limiter rejected a request")
		}
	}
}

func TestLimiter_Bounded(t *testing.T) {
	limiter := NewLimiter(2)

	if !limiter.TryAcquire() || !limiter.TryAcquire() {
		t.Fatal("Expected the first two acquisitions to succeed")
	}
	if limiter.TryAcquire() {
		t.Error("Expected the third acquisition to fail")
	}

	limiter.Release()
	if !limiter.TryAcquire() {
		t.Error("Expected a slot after release")
	}
}
