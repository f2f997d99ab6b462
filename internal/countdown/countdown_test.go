package countdown

import (
	"testing"
	"time"

	"stickduel/arena/internal/scheduler"
)

func TestCountdownTicksToExpiry(t *testing.T) {
	clock := scheduler.New()
	var ticks []int
	expired := 0
	svc := New(clock, func(remaining int) { ticks = append(ticks, remaining) }, func() {
		expired++
	})

	svc.Start(3)
	clock.Advance(999 * time.Millisecond)
	if svc.Remaining() != 3 || len(ticks) != 0 {
		t.Fatalf("expected no tick before one second, remaining=%d ticks=%v", svc.Remaining(), ticks)
	}
	clock.Advance(time.Millisecond)
	if svc.Remaining() != 2 {
		t.Fatalf("expected 2 seconds left, got %d", svc.Remaining())
	}
	clock.Advance(5 * time.Second)
	if len(ticks) != 3 || ticks[2] != 0 {
		t.Fatalf("expected ticks 2,1,0 got %v", ticks)
	}
	if expired != 1 {
		t.Fatalf("expected a single expiry, got %d", expired)
	}
	if svc.Running() || svc.Remaining() != 0 {
		t.Fatalf("expected a stopped clock at zero, running=%t remaining=%d", svc.Running(), svc.Remaining())
	}
}

func TestCountdownStopHaltsTicks(t *testing.T) {
	clock := scheduler.New()
	svc := New(clock, nil, func() { t.Fatalf("stopped countdown must not expire") })
	svc.Start(2)
	clock.Advance(time.Second)
	svc.Stop()
	clock.Advance(10 * time.Second)
	if svc.Remaining() != 1 {
		t.Fatalf("expected remaining to freeze at 1, got %d", svc.Remaining())
	}
}

func TestCountdownRestartReplacesTicker(t *testing.T) {
	clock := scheduler.New()
	ticks := 0
	svc := New(clock, func(int) { ticks++ }, nil)
	svc.Start(10)
	svc.Start(10)
	clock.Advance(time.Second)
	if ticks != 1 || svc.Remaining() != 9 {
		t.Fatalf("restart must not stack tickers, ticks=%d remaining=%d", ticks, svc.Remaining())
	}
	if clock.Pending() != 1 {
		t.Fatalf("expected a single pending ticker, got %d", clock.Pending())
	}
}

func TestCountdownDefaultsInitial(t *testing.T) {
	svc := New(scheduler.New(), nil, nil)
	svc.Start(0)
	if svc.Remaining() != DefaultSeconds {
		t.Fatalf("expected default %d, got %d", DefaultSeconds, svc.Remaining())
	}
}
