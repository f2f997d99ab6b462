package bots

import (
	"time"

	"stickduel/arena/internal/combat"
	"stickduel/arena/internal/logging"
	"stickduel/arena/internal/rng"
	"stickduel/arena/internal/scheduler"
)

const (
	// DefaultMinInterval is the shortest pause between autonomous attacks.
	DefaultMinInterval = 1500 * time.Millisecond
	// DefaultMaxInterval bounds the pause from above (exclusive).
	DefaultMaxInterval = 3000 * time.Millisecond
)

// Attacker is the combat entry point the agent drives.
type Attacker interface {
	Attempt(attacker combat.PlayerID, ultimate bool) bool
}

// Timers is the subset of the scheduler the agent reschedules itself on.
type Timers interface {
	After(delay time.Duration, fn func()) *scheduler.Timer
}

// AgentConfig configures an autonomous attacker.
type AgentConfig struct {
	// ID is the combatant the agent fires for.
	ID combat.PlayerID
	// Gate reports whether the agent may keep attacking. A false answer ends the loop.
	Gate     func() bool
	Attacker Attacker
	Timers   Timers
	Random   rng.Source
	// MinInterval and MaxInterval bound the uniform pause between attempts.
	MinInterval time.Duration
	MaxInterval time.Duration
	Logger      *logging.Logger
}

// Agent attacks on a jittered cadence while its gate stays open. It never checks the
// cooldown itself; attempts made during a cooldown are rejected by the resolver.
type Agent struct {
	id       combat.PlayerID
	gate     func() bool
	attacker Attacker
	timers   Timers
	random   rng.Source
	min      time.Duration
	span     time.Duration
	logger   *logging.Logger

	pending  *scheduler.Timer
	attempts int
	landed   int
}

// NewAgent constructs an agent with defensive defaults for missing collaborators.
func NewAgent(cfg AgentConfig) *Agent {
	agent := &Agent{
		id:       cfg.ID,
		gate:     cfg.Gate,
		attacker: cfg.Attacker,
		timers:   cfg.Timers,
		random:   cfg.Random,
		min:      cfg.MinInterval,
		logger:   cfg.Logger,
	}
	//1.- Fall back to the classic 1.5s..3s window when the bounds are unset or inverted.
	if agent.min <= 0 {
		agent.min = DefaultMinInterval
	}
	max := cfg.MaxInterval
	if max <= agent.min {
		max = agent.min + (DefaultMaxInterval - DefaultMinInterval)
	}
	agent.span = max - agent.min
	if agent.random == nil {
		agent.random = rng.NewSeeded(0)
	}
	if agent.logger == nil {
		agent.logger = logging.L()
	}
	return agent
}

// Start attacks immediately and keeps rescheduling until the gate closes or Stop is called.
func (a *Agent) Start() {
	if a == nil {
		return
	}
	a.Stop()
	a.logger.Debug("agent started", logging.Int("player", int(a.id)))
	a.act()
}

func (a *Agent) act() {
	a.pending = nil
	//1.- A closed gate ends the loop without rescheduling.
	if a.gate == nil || !a.gate() || a.attacker == nil {
		return
	}
	a.attempts++
	if a.attacker.Attempt(a.id, false) {
		a.landed++
	}
	//2.- Draw the next pause after the attempt so the shared source stays in step.
	delay := rng.Duration(a.random, a.min, a.min+a.span)
	if a.timers != nil {
		a.pending = a.timers.After(delay, a.act)
	}
}

// Stop cancels the pending reschedule.
func (a *Agent) Stop() {
	if a == nil || a.pending == nil {
		return
	}
	a.pending.Stop()
	a.pending = nil
}

// Running reports whether another attempt is scheduled.
func (a *Agent) Running() bool {
	return a != nil && a.pending.Active()
}

// Stats reports how many attempts the agent made and how many the resolver accepted.
func (a *Agent) Stats() (attempts, accepted int) {
	if a == nil {
		return 0, 0
	}
	return a.attempts, a.landed
}

// ID reports the combatant the agent drives.
func (a *Agent) ID() combat.PlayerID {
	if a == nil {
		return 0
	}
	return a.id
}
