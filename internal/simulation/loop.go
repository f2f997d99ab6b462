package simulation

import (
	"context"
	"time"

	"stickduel/arena/internal/logging"
)

// DefaultMaxCatchUp bounds how many fixed steps one wake-up may run after a stall.
const DefaultMaxCatchUp = 5

// StepFunc advances the simulation by a fixed timestep and may emit side effects.
type StepFunc func(step time.Duration)

// LoopOption customises a Loop at construction time.
type LoopOption func(*Loop)

// WithTickMonitor records the wall-clock cost of every step.
func WithTickMonitor(monitor *TickMonitor) LoopOption {
	return func(l *Loop) {
		l.monitor = monitor
	}
}

// WithLoopLogger attaches the logger used to report dropped time.
func WithLoopLogger(logger *logging.Logger) LoopOption {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithMaxCatchUp caps the number of steps run per wake-up. Values below one are ignored.
func WithMaxCatchUp(steps int) LoopOption {
	return func(l *Loop) {
		if steps > 0 {
			l.maxCatchUp = steps
		}
	}
}

// Loop drives a fixed timestep simulation at the configured target frequency.
type Loop struct {
	step       time.Duration
	stepFunc   StepFunc
	monitor    *TickMonitor
	logger     *logging.Logger
	maxCatchUp int
	done       chan struct{}
	cancel     context.CancelFunc
}

// NewLoop configures a loop that targets the provided frames per second.
func NewLoop(targetHz float64, step StepFunc, opts ...LoopOption) *Loop {
	if targetHz <= 0 {
		targetHz = 60
	}
	if step == nil {
		step = func(time.Duration) {}
	}
	interval := time.Duration(float64(time.Second) / targetHz)
	if interval <= 0 {
		interval = time.Second / 60
	}
	loop := &Loop{
		step:       interval,
		stepFunc:   step,
		logger:     logging.L(),
		maxCatchUp: DefaultMaxCatchUp,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(loop)
		}
	}
	return loop
}

// Run ticks on the caller's goroutine until ctx is cancelled and returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	if l == nil || l.stepFunc == nil {
		return nil
	}
	ticker := time.NewTicker(l.step)
	defer ticker.Stop()
	last := time.Now()
	accumulator := time.Duration(0)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			//1.- Accumulate elapsed time and run fixed steps while catching up.
			accumulator += now.Sub(last)
			last = now
			accumulator = l.drain(accumulator)
		}
	}
}

func (l *Loop) drain(accumulator time.Duration) time.Duration {
	steps := 0
	for accumulator >= l.step {
		if steps == l.maxCatchUp {
			//1.- Drop the backlog rather than spiral; game time simply runs slower.
			l.logger.Warn("simulation loop behind schedule",
				logging.Duration("dropped", accumulator),
				logging.Int("steps", steps),
			)
			return 0
		}
		started := time.Now()
		l.stepFunc(l.step)
		l.monitor.Observe(time.Since(started))
		accumulator -= l.step
		steps++
	}
	return accumulator
}

// Start begins ticking on a background goroutine until the context is cancelled or
// Stop is invoked.
func (l *Loop) Start(ctx context.Context) {
	if l == nil || l.stepFunc == nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	go func() {
		defer close(l.done)
		_ = l.Run(ctx)
	}()
}

// Stop cancels the loop and waits for the goroutine to exit.
func (l *Loop) Stop() {
	if l == nil {
		return
	}
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	if l.done != nil {
		<-l.done
		l.done = nil
	}
}

// StepDuration exposes the configured timestep for testing.
func (l *Loop) StepDuration() time.Duration {
	if l == nil {
		return 0
	}
	return l.step
}

// Drive runs total worth of fixed steps immediately without consulting the wall clock.
// Headless replays and tests use it to fast-forward a match.
func Drive(total, step time.Duration, fn StepFunc) int {
	if fn == nil || step <= 0 {
		return 0
	}
	steps := 0
	for total > 0 {
		dt := step
		if total < dt {
			dt = total
		}
		fn(dt)
		total -= dt
		steps++
	}
	return steps
}
