package match

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"stickduel/arena/internal/combat"
)

const envMatchID = "ARENA_MATCH_ID"

// ErrInvalidMatchID is returned when a configured match identifier contains unsupported characters.
var ErrInvalidMatchID = errors.New("match id may only contain letters, digits, '-', '_' and '.'")

// SessionOption configures optional Session behaviour at construction time.
type SessionOption func(*Session)

// Session serialises every call into one controller so game logic runs on a single
// logical thread no matter how many goroutines deliver input or read state.
type Session struct {
	mu sync.Mutex

	id         string
	controller *Controller
	envLookup  func(string) string
	now        func() time.Time
	startedAt  time.Time

	idConfigured bool
}

// WithSessionClock overrides the default wall-clock time source.
func WithSessionClock(clock func() time.Time) SessionOption {
	return func(s *Session) {
		//1.- Allow tests to inject a deterministic time source for reproducibility.
		if clock != nil {
			s.now = clock
		}
	}
}

// WithSessionEnvLookup injects a custom environment variable lookup mechanism.
func WithSessionEnvLookup(lookup func(string) string) SessionOption {
	return func(s *Session) {
		//1.- Swap the environment lookup so tests can provide deterministic values.
		s.envLookup = lookup
	}
}

// WithSessionMatchID sets the identifier used for the match instance.
func WithSessionMatchID(id string) SessionOption {
	return func(s *Session) {
		trimmed := strings.TrimSpace(id)
		if trimmed == "" {
			return
		}
		//1.- Record the supplied match identifier and mark it as explicit configuration.
		s.id = trimmed
		s.idConfigured = true
	}
}

// NewSession constructs the controller behind a mutex, resolving the match id from the
// options, then ARENA_MATCH_ID, then a fresh uuid.
func NewSession(cfg ControllerConfig, opts ...SessionOption) (*Session, error) {
	session := &Session{
		envLookup: os.Getenv,
		now:       time.Now,
	}
	//1.- Apply any caller supplied functional options prior to reading the environment.
	for _, opt := range opts {
		if opt != nil {
			opt(session)
		}
	}
	//2.- Populate the identifier from the environment when the caller did not override it.
	if !session.idConfigured && session.envLookup != nil {
		if id := strings.TrimSpace(session.envLookup(envMatchID)); id != "" {
			session.id = id
			session.idConfigured = true
		}
	}
	if session.id == "" {
		session.id = uuid.NewString()
	}
	if err := validateMatchID(session.id); err != nil {
		return nil, err
	}
	//3.- Build the controller with the resolved identity and show the menu.
	cfg.ID = session.id
	session.controller = NewController(cfg)
	session.startedAt = session.now()
	session.controller.Reset()
	return session, nil
}

func validateMatchID(id string) error {
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidMatchID, id)
		}
	}
	return nil
}

// ID reports the match identifier.
func (s *Session) ID() string {
	if s == nil {
		return ""
	}
	return s.id
}

// Uptime reports how long the session has existed on the wall clock.
func (s *Session) Uptime() time.Duration {
	if s == nil {
		return 0
	}
	return s.now().Sub(s.startedAt)
}

// Do runs fn with exclusive access to the controller.
func (s *Session) Do(fn func(*Controller)) {
	if s == nil || fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.controller)
}

// Step advances the match by dt.
func (s *Session) Step(dt time.Duration) {
	s.Do(func(c *Controller) { c.Step(dt) })
}

// SelectMode forwards a mode selection from the menu.
func (s *Session) SelectMode(mode Mode) error {
	if s == nil {
		return errors.New("session is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controller.SelectMode(mode)
}

// SelectModeName parses and forwards a mode selection.
func (s *Session) SelectModeName(raw string) error {
	mode, err := ParseMode(raw)
	if err != nil {
		return err
	}
	return s.SelectMode(mode)
}

// Attack forwards a human attack and reports whether a shot was fired.
func (s *Session) Attack(player combat.PlayerID) bool {
	fired := false
	s.Do(func(c *Controller) { fired = c.Attack(player) })
	return fired
}

// ConfirmReplay answers the play-again prompt.
func (s *Session) ConfirmReplay(yes bool) {
	s.Do(func(c *Controller) { c.ConfirmReplay(yes) })
}

// OpenRules shows the rules from the menu.
func (s *Session) OpenRules() {
	s.Do(func(c *Controller) { c.OpenRules() })
}

// CloseRules hides the rules.
func (s *Session) CloseRules() {
	s.Do(func(c *Controller) { c.CloseRules() })
}

// Snapshot returns a deep copy of the match context.
func (s *Session) Snapshot() Context {
	var snapshot Context
	s.Do(func(c *Controller) { snapshot = c.Snapshot() })
	return snapshot
}

// HUD returns the current heads-up display.
func (s *Session) HUD() HUD {
	var hud HUD
	s.Do(func(c *Controller) { hud = c.HUD() })
	return hud
}

// Overlay returns the overlay currently shown.
func (s *Session) Overlay() Overlay {
	var overlay Overlay
	s.Do(func(c *Controller) { overlay = c.Overlay() })
	return overlay
}

// Stats is a point-in-time summary used by metrics exporters.
type Stats struct {
	Status        Status
	Phase         Phase
	Mode          Mode
	Round         int
	Remaining     int
	Tick          uint64
	Projectiles   int
	Attacks       [2]int
	Health        [2]int
	CPUAttempts   int
	PilotAttempts int
}

// Stats summarises the match for metrics.
func (s *Session) Stats() Stats {
	var stats Stats
	s.Do(func(c *Controller) {
		snapshot := c.Snapshot()
		stats = Stats{
			Status:      snapshot.Status,
			Phase:       snapshot.Phase,
			Mode:        snapshot.Mode,
			Round:       snapshot.SurvivalRound,
			Remaining:   snapshot.Remaining,
			Tick:        c.Tick(),
			Projectiles: snapshot.Projectiles,
			Attacks:     [2]int{snapshot.One.Attacks, snapshot.Two.Attacks},
			Health:      [2]int{snapshot.One.Health, snapshot.Two.Health},
		}
		stats.CPUAttempts, _, stats.PilotAttempts, _ = c.AgentStats()
	})
	return stats
}
