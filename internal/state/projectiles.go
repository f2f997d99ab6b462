package state

import (
	"sync"
	"time"

	"stickduel/arena/internal/combat"
)

const (
	// ReferenceFrame is the frame length the projectile velocity is expressed against.
	ReferenceFrame = time.Second / 60
	// ArenaMinX and ArenaMaxX bound the playfield; shots drifting past them are dropped.
	ArenaMinX = -200.0
	ArenaMaxX = 1200.0
)

// TargetLocator reports where the combatant a projectile is flying at currently stands.
type TargetLocator func(id combat.PlayerID) (combat.Vec2, bool)

// ArrivalHandler receives every projectile that reached its target, hit or miss.
type ArrivalHandler func(combat.Projectile)

// ProjectileDiff aggregates launches and removals since the previous consume.
type ProjectileDiff struct {
	Launched []combat.Projectile
	Removed  []string
}

// Empty reports whether the diff carries nothing worth broadcasting.
func (d ProjectileDiff) Empty() bool {
	return len(d.Launched) == 0 && len(d.Removed) == 0
}

// ProjectileSimulator moves in-flight shots and hands arrivals back to combat.
type ProjectileSimulator struct {
	mu        sync.Mutex
	inFlight  []combat.Projectile
	launched  []combat.Projectile
	removed   []string
	onArrival ArrivalHandler
}

// NewProjectileSimulator constructs an empty simulator reporting arrivals to the handler.
func NewProjectileSimulator(onArrival ArrivalHandler) *ProjectileSimulator {
	return &ProjectileSimulator{onArrival: onArrival}
}

// SetArrivalHandler replaces the arrival callback.
func (s *ProjectileSimulator) SetArrivalHandler(handler ArrivalHandler) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.onArrival = handler
	s.mu.Unlock()
}

// Launch appends a projectile; it starts moving on the next Advance.
func (s *ProjectileSimulator) Launch(p combat.Projectile) {
	if s == nil {
		return
	}
	s.mu.Lock()
	//1.- Keep launch order so arrivals resolve deterministically.
	s.inFlight = append(s.inFlight, p)
	s.launched = append(s.launched, p)
	s.mu.Unlock()
}

// Advance moves every in-flight projectile once by step and resolves arrivals.
func (s *ProjectileSimulator) Advance(step time.Duration, locate TargetLocator) int {
	if s == nil || step <= 0 {
		return 0
	}
	scale := step.Seconds() / ReferenceFrame.Seconds()

	s.mu.Lock()
	//1.- Partition into survivors and arrivals so removal never skips a sibling.
	kept := s.inFlight[:0:0]
	var arrived []combat.Projectile
	for _, p := range s.inFlight {
		p.Position.X += p.VelocityX * scale
		if target, ok := locate(p.Target()); ok && reached(p, target) {
			arrived = append(arrived, p)
			s.removed = append(s.removed, p.ID)
			continue
		}
		if p.Position.X < ArenaMinX || p.Position.X > ArenaMaxX {
			s.removed = append(s.removed, p.ID)
			continue
		}
		kept = append(kept, p)
	}
	s.inFlight = kept
	handler := s.onArrival
	s.mu.Unlock()

	//2.- Run callbacks outside the lock; they may launch or clear.
	if handler != nil {
		for _, p := range arrived {
			handler(p)
		}
	}
	return len(arrived)
}

func reached(p combat.Projectile, target combat.Vec2) bool {
	if p.VelocityX > 0 {
		return p.Position.X >= target.X
	}
	if p.VelocityX < 0 {
		return p.Position.X <= target.X
	}
	return false
}

// Clear drops every in-flight projectile and records their removal.
func (s *ProjectileSimulator) Clear() {
	if s == nil {
		return
	}
	s.mu.Lock()
	for _, p := range s.inFlight {
		s.removed = append(s.removed, p.ID)
	}
	s.inFlight = nil
	s.mu.Unlock()
}

// Len reports how many projectiles are in flight.
func (s *ProjectileSimulator) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inFlight)
}

// Snapshot copies the in-flight projectiles in launch order.
func (s *ProjectileSimulator) Snapshot() []combat.Projectile {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]combat.Projectile(nil), s.inFlight...)
}

// ConsumeDiff retrieves and clears the launches and removals recorded since the last call.
func (s *ProjectileSimulator) ConsumeDiff() ProjectileDiff {
	if s == nil {
		return ProjectileDiff{}
	}
	s.mu.Lock()
	diff := ProjectileDiff{Launched: s.launched, Removed: s.removed}
	s.launched = nil
	s.removed = nil
	s.mu.Unlock()
	return diff
}
