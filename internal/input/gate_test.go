package input

import (
	"sync"
	"testing"
	"time"

	"stickduel/arena/internal/logging"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestGate(clock *fakeClock) *Gate {
	return NewGate(DefaultConfig(), logging.NewTestLogger(), WithClock(clock))
}

func TestGateRejectsNonMonotonicSequence(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	gate := newTestGate(clock)

	//1.- Accept the initial press to seed source state.
	if first := gate.Evaluate(Press{Source: "p1", Sequence: 1}); !first.Accepted {
		t.Fatalf("first press unexpectedly rejected: %+v", first)
	}

	//2.- Replaying the sequence is dropped even after the repeat window.
	clock.Advance(time.Second)
	second := gate.Evaluate(Press{Source: "p1", Sequence: 1})
	if second.Accepted || second.Reason != DropReasonSequence {
		t.Fatalf("expected sequence drop, got %+v", second)
	}
	if zero := gate.Evaluate(Press{Source: "p2"}); zero.Accepted || zero.Reason != DropReasonSequence {
		t.Fatalf("expected a zero sequence to be dropped, got %+v", zero)
	}
	if metrics := gate.Metrics().Snapshot(); metrics["p1"].Sequence != 1 || metrics["p2"].Sequence != 1 {
		t.Fatalf("unexpected sequence drops %+v", metrics)
	}
}

func TestGateRejectsStalePresses(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	gate := newTestGate(clock)
	pressedAt := clock.Now()

	//1.- The press sat in the queue longer than the freshness budget.
	clock.Advance(600 * time.Millisecond)
	stale := gate.Evaluate(Press{Source: "p1", Sequence: 1, At: pressedAt})
	if stale.Accepted || stale.Reason != DropReasonStale || stale.Delay != 600*time.Millisecond {
		t.Fatalf("expected stale drop, got %+v", stale)
	}

	//2.- A fresh press from the same source is still welcome.
	fresh := gate.Evaluate(Press{Source: "p1", Sequence: 2, At: clock.Now()})
	if !fresh.Accepted {
		t.Fatalf("fresh press rejected: %+v", fresh)
	}
	if metrics := gate.Metrics().Snapshot()["p1"]; metrics.Stale != 1 {
		t.Fatalf("stale drops = %d, want 1", metrics.Stale)
	}
}

func TestGateCollapsesAutoRepeatPerSource(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	gate := newTestGate(clock)

	if decision := gate.Evaluate(Press{Source: "p1", Sequence: 1}); !decision.Accepted {
		t.Fatalf("initial press rejected: %+v", decision)
	}

	//1.- A repeat inside the window is dropped but the other player is unaffected.
	clock.Advance(10 * time.Millisecond)
	repeat := gate.Evaluate(Press{Source: "p1", Sequence: 2})
	if repeat.Accepted || repeat.Reason != DropReasonRateLimited {
		t.Fatalf("expected rate limit drop, got %+v", repeat)
	}
	if other := gate.Evaluate(Press{Source: "p2", Sequence: 3}); !other.Accepted {
		t.Fatalf("other source should not share the window: %+v", other)
	}

	//2.- Once the window passes the next press is accepted.
	clock.Advance(DefaultMinInterval)
	if later := gate.Evaluate(Press{Source: "p1", Sequence: 4}); !later.Accepted {
		t.Fatalf("press after the window rejected: %+v", later)
	}
	if sources := gate.Metrics().Sources(); len(sources) != 1 || sources[0] != "p1" {
		t.Fatalf("unexpected sources %v", sources)
	}
}

func TestGateForgetClearsSourceState(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	metrics := NewMetrics()
	gate := NewGate(DefaultConfig(), logging.NewTestLogger(), WithClock(clock), WithMetrics(metrics))

	gate.Evaluate(Press{Source: "menu", Sequence: 5})
	gate.Evaluate(Press{Source: "menu", Sequence: 5})
	if metrics.Snapshot()["menu"].Sequence != 1 {
		t.Fatal("shared metrics should record the drop")
	}

	gate.Forget("menu")
	if snapshot := metrics.Snapshot(); snapshot != nil {
		t.Fatalf("expected metrics reset after forget, got %+v", snapshot)
	}
	clock.Advance(time.Second)
	if decision := gate.Evaluate(Press{Source: "menu", Sequence: 1}); !decision.Accepted {
		t.Fatalf("expected a fresh start after forget, got %+v", decision)
	}
}

func TestNilGateAdmitsEverything(t *testing.T) {
	var gate *Gate
	if decision := gate.Evaluate(Press{Source: "p1", Sequence: 1}); !decision.Accepted {
		t.Fatal("nil gate should admit presses")
	}
	if gate.Metrics().Snapshot() != nil {
		t.Fatal("nil gate has no metrics")
	}
}
