package scheduler

import "time"

// Group tracks timers that share a lifetime so they can be cancelled together.
type Group struct {
	owner  *Scheduler
	timers []*Timer
}

// NewGroup binds a group to the scheduler.
func (s *Scheduler) NewGroup() *Group {
	return &Group{owner: s}
}

// After schedules a one-shot timer owned by the group.
func (g *Group) After(delay time.Duration, fn func()) *Timer {
	if g == nil {
		return nil
	}
	return g.track(g.owner.After(delay, fn))
}

// Every schedules a repeating timer owned by the group.
func (g *Group) Every(period time.Duration, fn func()) *Timer {
	if g == nil {
		return nil
	}
	return g.track(g.owner.Every(period, fn))
}

// CancelAll stops every timer in the group and returns how many were still pending.
func (g *Group) CancelAll() int {
	if g == nil {
		return 0
	}
	cancelled := 0
	for _, t := range g.timers {
		if t.Stop() {
			cancelled++
		}
	}
	g.timers = g.timers[:0]
	return cancelled
}

// Len reports how many tracked timers are still active.
func (g *Group) Len() int {
	if g == nil {
		return 0
	}
	g.prune()
	return len(g.timers)
}

func (g *Group) track(t *Timer) *Timer {
	//1.- Drop finished handles first so long matches do not accumulate dead timers.
	g.prune()
	g.timers = append(g.timers, t)
	return t
}

func (g *Group) prune() {
	kept := g.timers[:0]
	for _, t := range g.timers {
		if t.Active() {
			kept = append(kept, t)
		}
	}
	for i := len(kept); i < len(g.timers); i++ {
		g.timers[i] = nil
	}
	g.timers = kept
}
