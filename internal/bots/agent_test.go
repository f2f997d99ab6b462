package bots

import (
	"testing"
	"time"

	"pgregory.net/rapid"

	"stickduel/arena/internal/combat"
	"stickduel/arena/internal/logging"
	"stickduel/arena/internal/rng"
	"stickduel/arena/internal/scheduler"
)

type fakeAttacker struct {
	calls  []combat.PlayerID
	at     []time.Duration
	clock  *scheduler.Scheduler
	accept bool
}

func (f *fakeAttacker) Attempt(id combat.PlayerID, ultimate bool) bool {
	//1.- Record every attempt with its virtual timestamp so cadence can be asserted.
	f.calls = append(f.calls, id)
	f.at = append(f.at, f.clock.Now())
	return f.accept
}

func newAgentFixture(open *bool, draws ...float64) (*Agent, *fakeAttacker, *scheduler.Scheduler) {
	clock := scheduler.New()
	attacker := &fakeAttacker{clock: clock, accept: true}
	agent := NewAgent(AgentConfig{
		ID:       combat.PlayerTwo,
		Gate:     func() bool { return *open },
		Attacker: attacker,
		Timers:   clock,
		Random:   rng.NewScripted(draws...),
		Logger:   logging.NewTestLogger(),
	})
	return agent, attacker, clock
}

func TestAgentAttacksImmediatelyThenOnCadence(t *testing.T) {
	open := true
	agent, attacker, clock := newAgentFixture(&open, 0, 0.5, 0.999)

	agent.Start()
	if len(attacker.calls) != 1 || attacker.calls[0] != combat.PlayerTwo {
		t.Fatalf("expected an immediate attempt for P2, got %v", attacker.calls)
	}
	clock.Advance(1500 * time.Millisecond)
	if len(attacker.calls) != 2 {
		t.Fatalf("expected second attempt after 1500ms, got %d", len(attacker.calls))
	}
	clock.Advance(2250 * time.Millisecond)
	if len(attacker.calls) != 3 {
		t.Fatalf("expected third attempt after a further 2250ms, got %d", len(attacker.calls))
	}
	if attempts, accepted := agent.Stats(); attempts != 3 || accepted != 3 {
		t.Fatalf("unexpected stats attempts=%d accepted=%d", attempts, accepted)
	}
}

func TestAgentStopsWhenGateCloses(t *testing.T) {
	open := true
	agent, attacker, clock := newAgentFixture(&open, 0)
	agent.Start()
	open = false
	clock.Advance(10 * time.Second)
	if len(attacker.calls) != 1 {
		t.Fatalf("closed gate must end the loop, got %d attempts", len(attacker.calls))
	}
	if agent.Running() {
		t.Fatalf("agent should not reschedule after the gate closes")
	}
}

func TestAgentStopCancelsReschedule(t *testing.T) {
	open := true
	agent, attacker, clock := newAgentFixture(&open, 0)
	agent.Start()
	if !agent.Running() {
		t.Fatalf("expected a pending reschedule")
	}
	agent.Stop()
	clock.Advance(10 * time.Second)
	if len(attacker.calls) != 1 || clock.Pending() != 0 {
		t.Fatalf("stop must cancel the pending attempt, calls=%d pending=%d", len(attacker.calls), clock.Pending())
	}
}

func TestAgentRestartDoesNotDoubleLoop(t *testing.T) {
	open := true
	agent, _, clock := newAgentFixture(&open, 0)
	agent.Start()
	agent.Start()
	if clock.Pending() != 1 {
		t.Fatalf("expected exactly one pending attempt, got %d", clock.Pending())
	}
}

func TestAgentClosedGateNeverAttacks(t *testing.T) {
	open := false
	agent, attacker, _ := newAgentFixture(&open, 0)
	agent.Start()
	if len(attacker.calls) != 0 || agent.Running() {
		t.Fatalf("closed gate must block the first attempt")
	}
}

func TestAgentIntervalStaysWithinBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		draws := rapid.SliceOfN(rapid.Float64Range(0, 0.999999), 2, 20).Draw(t, "draws")
		open := true
		agent, attacker, clock := newAgentFixture(&open, draws...)
		agent.Start()
		for i := 0; i < len(draws)-1; i++ {
			clock.Advance(DefaultMaxInterval)
		}
		for i := 1; i < len(attacker.at); i++ {
			gap := attacker.at[i] - attacker.at[i-1]
			if gap < DefaultMinInterval || gap >= DefaultMaxInterval {
				t.Fatalf("gap %v outside [%v,%v)", gap, DefaultMinInterval, DefaultMaxInterval)
			}
		}
	})
}
