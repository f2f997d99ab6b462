package input

import (
	"sort"
	"sync"
	"time"

	"stickduel/arena/internal/logging"
)

const (
	// DefaultMaxAge drops presses that waited longer than this before reaching the match.
	DefaultMaxAge = 250 * time.Millisecond
	// DefaultMinInterval collapses terminal key auto-repeat per source.
	DefaultMinInterval = 50 * time.Millisecond
)

// Clock exposes the current time for freshness and repeat decisions.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// Now implements Clock by delegating to time.Now.
func (systemClock) Now() time.Time { return time.Now() }

// Config controls the freshness and repeat gates applied to key presses.
type Config struct {
	MaxAge      time.Duration
	MinInterval time.Duration
}

// DefaultConfig returns the limits used by the terminal front-end.
func DefaultConfig() Config {
	return Config{MaxAge: DefaultMaxAge, MinInterval: DefaultMinInterval}
}

// DropReason enumerates why a press was rejected by the gate.
type DropReason string

const (
	DropReasonNone        DropReason = ""
	DropReasonSequence    DropReason = "sequence"
	DropReasonStale       DropReason = "stale"
	DropReasonRateLimited DropReason = "rate_limit"
)

// String returns the textual representation of the drop reason.
func (r DropReason) String() string { return string(r) }

// Decision summarises whether a press passed the gate.
type Decision struct {
	Accepted bool
	Reason   DropReason
	Delay    time.Duration
}

// Press is one decoded key press on its way to the match. Source groups presses that
// share a repeat budget, such as one player's attack key.
type Press struct {
	Source   string
	Sequence uint64
	At       time.Time
}

type sourceState struct {
	lastSequence uint64
	lastAccepted time.Time
}

// DropCounters aggregates per-reason drop counts.
type DropCounters struct {
	Sequence    uint64 `json:"sequence"`
	Stale       uint64 `json:"stale"`
	RateLimited uint64 `json:"rate_limited"`
}

// Metrics stores per-source drop counters for diagnostics.
type Metrics struct {
	mu    sync.RWMutex
	drops map[string]DropCounters
}

// NewMetrics provisions an empty metrics container that several gates may share.
func NewMetrics() *Metrics {
	return &Metrics{drops: make(map[string]DropCounters)}
}

func (m *Metrics) observe(source string, reason DropReason) {
	if m == nil || source == "" || reason == DropReasonNone {
		return
	}
	m.mu.Lock()
	current := m.drops[source]
	switch reason {
	case DropReasonSequence:
		current.Sequence++
	case DropReasonStale:
		current.Stale++
	case DropReasonRateLimited:
		current.RateLimited++
	}
	m.drops[source] = current
	m.mu.Unlock()
}

// Snapshot returns a copy of the counters.
func (m *Metrics) Snapshot() map[string]DropCounters {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.drops) == 0 {
		return nil
	}
	clone := make(map[string]DropCounters, len(m.drops))
	for source, counters := range m.drops {
		clone[source] = counters
	}
	return clone
}

// Sources lists the sources with recorded drops in a stable order.
func (m *Metrics) Sources() []string {
	snapshot := m.Snapshot()
	sources := make([]string, 0, len(snapshot))
	for source := range snapshot {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	return sources
}

func (m *Metrics) forget(source string) {
	if m == nil || source == "" {
		return
	}
	m.mu.Lock()
	delete(m.drops, source)
	m.mu.Unlock()
}

// Gate drops key presses that arrive out of order, too late, or as auto-repeat.
type Gate struct {
	mu      sync.Mutex
	cfg     Config
	clock   Clock
	logger  *logging.Logger
	metrics *Metrics
	sources map[string]*sourceState
}

// Option customises gate construction.
type Option func(*Gate)

// WithClock overrides the clock used for freshness calculations.
func WithClock(clock Clock) Option {
	return func(g *Gate) {
		if clock != nil {
			g.clock = clock
		}
	}
}

// WithMetrics injects a shared metrics container.
func WithMetrics(metrics *Metrics) Option {
	return func(g *Gate) {
		if metrics != nil {
			g.metrics = metrics
		}
	}
}

// NewGate constructs a gate with the supplied configuration and logger.
func NewGate(cfg Config, logger *logging.Logger, opts ...Option) *Gate {
	//1.- Zero or negative limits disable the corresponding check.
	if cfg.MaxAge < 0 {
		cfg.MaxAge = 0
	}
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	}
	if logger == nil {
		logger = logging.L()
	}
	gate := &Gate{
		cfg:     cfg,
		clock:   systemClock{},
		logger:  logger,
		metrics: NewMetrics(),
		sources: make(map[string]*sourceState),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(gate)
		}
	}
	return gate
}

// Evaluate applies the sequence, freshness and repeat checks to press.
func (g *Gate) Evaluate(press Press) Decision {
	decision := Decision{Accepted: true}
	if g == nil || press.Source == "" {
		return decision
	}
	now := g.clock.Now()
	if !press.At.IsZero() {
		if delay := now.Sub(press.At); delay > 0 {
			decision.Delay = delay
		}
	}

	g.mu.Lock()
	state := g.sources[press.Source]
	if state == nil {
		state = &sourceState{}
		g.sources[press.Source] = state
	}
	switch {
	case press.Sequence == 0 || press.Sequence <= state.lastSequence:
		decision.Accepted, decision.Reason = false, DropReasonSequence
	case g.cfg.MaxAge > 0 && decision.Delay > g.cfg.MaxAge:
		decision.Accepted, decision.Reason = false, DropReasonStale
	case g.cfg.MinInterval > 0 && !state.lastAccepted.IsZero() && now.Sub(state.lastAccepted) < g.cfg.MinInterval:
		decision.Accepted, decision.Reason = false, DropReasonRateLimited
	default:
		//1.- Only accepted presses move the source forward.
		state.lastSequence = press.Sequence
		state.lastAccepted = now
	}
	g.mu.Unlock()

	if !decision.Accepted {
		g.metrics.observe(press.Source, decision.Reason)
		g.logger.Debug("key press dropped",
			logging.String("source", press.Source),
			logging.String("reason", decision.Reason.String()),
			logging.Duration("delay", decision.Delay),
		)
	}
	return decision
}

// Forget clears sequencing and metrics for a source.
func (g *Gate) Forget(source string) {
	if g == nil || source == "" {
		return
	}
	g.mu.Lock()
	delete(g.sources, source)
	g.mu.Unlock()
	g.metrics.forget(source)
}

// Metrics returns the counters the gate records into.
func (g *Gate) Metrics() *Metrics {
	if g == nil {
		return nil
	}
	return g.metrics
}
