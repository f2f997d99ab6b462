// Package countdown runs the per-round clock on the match scheduler.
package countdown

import (
	"time"

	"stickduel/arena/internal/scheduler"
)

// DefaultSeconds is the length of a round when no override is configured.
const DefaultSeconds = 499

// Timers is the subset of the scheduler the countdown needs.
type Timers interface {
	Every(period time.Duration, fn func()) *scheduler.Timer
}

// Service decrements the remaining seconds once per second until it reaches zero.
type Service struct {
	timers    Timers
	ticker    *scheduler.Timer
	remaining int
	onTick    func(remaining int)
	onExpire  func()
}

// New wires the countdown to a scheduler. Either callback may be nil.
func New(timers Timers, onTick func(remaining int), onExpire func()) *Service {
	return &Service{timers: timers, onTick: onTick, onExpire: onExpire}
}

// Start resets the clock to initial seconds and begins ticking. A running countdown is
// replaced, never stacked.
func (s *Service) Start(initial int) {
	if s == nil {
		return
	}
	s.Stop()
	if initial <= 0 {
		initial = DefaultSeconds
	}
	s.remaining = initial
	if s.timers == nil {
		return
	}
	s.ticker = s.timers.Every(time.Second, s.tick)
}

func (s *Service) tick() {
	if s.remaining <= 0 {
		s.Stop()
		return
	}
	//1.- Decrement and publish before deciding on expiry so the UI sees zero.
	s.remaining--
	if s.onTick != nil {
		s.onTick(s.remaining)
	}
	if s.remaining > 0 {
		return
	}
	//2.- Zero is terminal: cancel first so expiry handlers observe a stopped clock.
	s.Stop()
	if s.onExpire != nil {
		s.onExpire()
	}
}

// Stop cancels the pending tick. Remaining keeps its last value.
func (s *Service) Stop() {
	if s == nil || s.ticker == nil {
		return
	}
	s.ticker.Stop()
	s.ticker = nil
}

// Remaining reports the seconds left in the round.
func (s *Service) Remaining() int {
	if s == nil {
		return 0
	}
	return s.remaining
}

// Running reports whether the countdown is still ticking.
func (s *Service) Running() bool {
	return s != nil && s.ticker.Active()
}
