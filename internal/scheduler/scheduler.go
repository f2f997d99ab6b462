package scheduler

import (
	"container/heap"
	"time"
)

// MinPeriod bounds repeating timers so a zero period cannot spin Advance forever.
const MinPeriod = time.Millisecond

// Scheduler runs delayed and repeating callbacks against a virtual clock.
// It is not safe for concurrent use; callers serialise access the same way
// they serialise the rest of the match state.
type Scheduler struct {
	now   time.Duration
	seq   uint64
	queue timerQueue
}

// Timer is a handle to a pending callback.
type Timer struct {
	owner  *Scheduler
	due    time.Duration
	period time.Duration
	fn     func()
	seq    uint64
	index  int
	done   bool
}

// New constructs a scheduler whose clock starts at zero.
func New() *Scheduler {
	return &Scheduler{}
}

// Now reports the virtual time elapsed since construction.
func (s *Scheduler) Now() time.Duration {
	if s == nil {
		return 0
	}
	return s.now
}

// After schedules fn to run once when the clock has advanced by delay.
func (s *Scheduler) After(delay time.Duration, fn func()) *Timer {
	if delay < 0 {
		delay = 0
	}
	return s.schedule(delay, 0, fn)
}

// Every schedules fn to run each period until the timer is stopped.
func (s *Scheduler) Every(period time.Duration, fn func()) *Timer {
	if period < MinPeriod {
		period = MinPeriod
	}
	return s.schedule(period, period, fn)
}

func (s *Scheduler) schedule(delay, period time.Duration, fn func()) *Timer {
	if s == nil || fn == nil {
		return &Timer{done: true, index: -1}
	}
	//1.- Stamp a sequence number so timers due at the same instant fire in scheduling order.
	s.seq++
	t := &Timer{owner: s, due: s.now + delay, period: period, fn: fn, seq: s.seq, index: -1}
	heap.Push(&s.queue, t)
	return t
}

// Advance moves the clock forward by step and fires every callback that falls due,
// including callbacks scheduled by earlier callbacks inside the same window.
// It returns the number of callbacks executed.
func (s *Scheduler) Advance(step time.Duration) int {
	if s == nil || step < 0 {
		return 0
	}
	target := s.now + step
	fired := 0
	for s.queue.Len() > 0 {
		next := s.queue[0]
		if next.due > target {
			break
		}
		heap.Pop(&s.queue)
		//1.- Move the clock to the callback's deadline so nested scheduling stays relative to it.
		s.now = next.due
		if next.period > 0 {
			//2.- Re-arm repeating timers before running them so the callback may stop itself.
			next.due += next.period
			s.seq++
			next.seq = s.seq
			heap.Push(&s.queue, next)
		} else {
			next.done = true
		}
		fired++
		next.fn()
	}
	s.now = target
	return fired
}

// Pending reports how many timers are still queued.
func (s *Scheduler) Pending() int {
	if s == nil {
		return 0
	}
	return s.queue.Len()
}

// Stop cancels the timer. It reports whether the timer was still pending.
func (t *Timer) Stop() bool {
	if t == nil || t.done {
		return false
	}
	t.done = true
	if t.owner != nil && t.index >= 0 {
		heap.Remove(&t.owner.queue, t.index)
	}
	return true
}

// Active reports whether the timer will fire again.
func (t *Timer) Active() bool {
	return t != nil && !t.done
}

// Due reports the virtual time of the next firing.
func (t *Timer) Due() time.Duration {
	if t == nil {
		return 0
	}
	return t.due
}

type timerQueue []*Timer

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	if q[i].due == q[j].due {
		return q[i].seq < q[j].seq
	}
	return q[i].due < q[j].due
}

func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *timerQueue) Push(x any) {
	t := x.(*Timer)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}
