package match

import (
	"errors"
	"sync"
	"testing"
	"time"

	"stickduel/arena/internal/combat"
	"stickduel/arena/internal/logging"
	"stickduel/arena/internal/rng"
)

func testConfig() ControllerConfig {
	return ControllerConfig{
		Random:     rng.NewScripted(0.5),
		Logger:     logging.NewTestLogger(),
		DisableCPU: true,
	}
}

func TestNewSessionLoadsMatchIDFromEnvironment(t *testing.T) {
	t.Setenv(envMatchID, "alpha")

	clock := func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	session, err := NewSession(testConfig(), WithSessionClock(clock))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if session.ID() != "alpha" || session.Snapshot().ID != "alpha" {
		t.Fatalf("unexpected match id: %q", session.ID())
	}
	if session.Uptime() != 0 {
		t.Fatalf("expected zero uptime with a frozen clock, got %s", session.Uptime())
	}
	if session.Overlay().Kind != OverlayModeSelect {
		t.Fatalf("new sessions should open on the mode selection")
	}
}

func TestExplicitMatchIDWinsOverEnvironment(t *testing.T) {
	session, err := NewSession(testConfig(),
		WithSessionMatchID("persistent"),
		WithSessionEnvLookup(func(string) string { return "ignored" }),
	)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if session.ID() != "persistent" {
		t.Fatalf("unexpected match id: %q", session.ID())
	}
}

func TestGeneratedMatchIDWhenUnset(t *testing.T) {
	session, err := NewSession(testConfig(), WithSessionEnvLookup(nil))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if len(session.ID()) != 36 {
		t.Fatalf("expected a uuid match id, got %q", session.ID())
	}
}

func TestInvalidMatchIDRejected(t *testing.T) {
	_, err := NewSession(testConfig(), WithSessionMatchID("bad id!"))
	if !errors.Is(err, ErrInvalidMatchID) {
		t.Fatalf("expected ErrInvalidMatchID, got %v", err)
	}
}

func TestSessionStatsTrackPlay(t *testing.T) {
	session, err := NewSession(testConfig(), WithSessionMatchID("stats"))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := session.SelectModeName("2p"); err != nil {
		t.Fatalf("select mode: %v", err)
	}
	if err := session.SelectModeName("arcade"); !errors.Is(err, ErrUnknownMode) {
		t.Fatalf("expected unknown mode, got %v", err)
	}
	session.Step(GetReadyDelay)
	if !session.Attack(combat.PlayerTwo) {
		t.Fatalf("player two should attack in two player mode")
	}
	stats := session.Stats()
	if stats.Status != StatusPlaying || stats.Mode != ModeTwoPlayer || stats.Round != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.Attacks != [2]int{0, 1} || stats.Projectiles != 1 || stats.Health != [2]int{1000, 1000} {
		t.Fatalf("unexpected combat stats: %+v", stats)
	}
	if stats.Tick == 0 {
		t.Fatalf("starting a match should emit a frame")
	}
}

func TestSessionSerialisesConcurrentInput(t *testing.T) {
	session, err := NewSession(testConfig(), WithSessionMatchID("race"))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := session.SelectMode(ModeTwoPlayer); err != nil {
		t.Fatalf("select mode: %v", err)
	}
	session.Step(GetReadyDelay)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(player combat.PlayerID) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				session.Attack(player)
				session.Step(time.Millisecond)
				_ = session.HUD()
			}
		}(combat.PlayerID(i%2 + 1))
	}
	wg.Wait()

	stats := session.Stats()
	if stats.Health[0] < 0 || stats.Health[1] < 0 {
		t.Fatalf("health went negative: %+v", stats.Health)
	}
	if stats.Attacks[0] < 1 || stats.Attacks[1] < 1 {
		t.Fatalf("both seats should have fired at least once: %+v", stats.Attacks)
	}
}

func TestNilSessionIsSafe(t *testing.T) {
	var session *Session
	if session.ID() != "" || session.Uptime() != 0 {
		t.Fatalf("nil session should report zero values")
	}
	if err := session.SelectMode(ModeVsCPU); err == nil {
		t.Fatalf("expected error from nil session")
	}
	session.Step(time.Second)
}
