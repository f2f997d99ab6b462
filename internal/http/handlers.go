package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strconv"
	"time"

	"stickduel/arena/internal/input"
	"stickduel/arena/internal/logging"
	"stickduel/arena/internal/match"
	"stickduel/arena/internal/simulation"
)

// ReadinessProvider exposes process state required for readiness checks.
type ReadinessProvider interface {
	StartupError() error
	Uptime() time.Duration
}

// MatchSource exposes the running match.
type MatchSource interface {
	Stats() match.Stats
	Snapshot() match.Context
	HUD() match.HUD
}

// SpectatorStats reports the websocket feed counters.
type SpectatorStats interface {
	Clients() int
	FramesSent() uint64
	Rejected() uint64
	Unauthorized() uint64
}

// RateLimiter gates how frequently sensitive operations may be invoked.
type RateLimiter interface {
	Allow() bool
}

// Options configures the HandlerSet.
type Options struct {
	Logger     *logging.Logger
	Readiness  ReadinessProvider
	Match      MatchSource
	Ticks      func() simulation.TickMetricsSnapshot
	Spectators SpectatorStats
	// Events reports the last sequence published on the event stream.
	Events func() uint64
	// InputDrops reports key presses discarded by the terminal input gate.
	InputDrops  func() map[string]input.DropCounters
	RateLimiter RateLimiter
	TimeSource  func() time.Time
}

// HandlerSet bundles the operational handlers.
type HandlerSet struct {
	logger      *logging.Logger
	readiness   ReadinessProvider
	match       MatchSource
	ticks       func() simulation.TickMetricsSnapshot
	spectators  SpectatorStats
	events      func() uint64
	inputDrops  func() map[string]input.DropCounters
	rateLimiter RateLimiter
	now         func() time.Time
}

// NewHandlerSet constructs a HandlerSet using the provided options.
func NewHandlerSet(opts Options) *HandlerSet {
	logger := opts.Logger
	if logger == nil {
		logger = logging.L()
	}
	now := opts.TimeSource
	if now == nil {
		now = time.Now
	}
	return &HandlerSet{
		logger:      logger,
		readiness:   opts.Readiness,
		match:       opts.Match,
		ticks:       opts.Ticks,
		spectators:  opts.Spectators,
		events:      opts.Events,
		inputDrops:  opts.InputDrops,
		rateLimiter: opts.RateLimiter,
		now:         now,
	}
}

// Register attaches all handlers to the provided mux.
func (h *HandlerSet) Register(mux *http.ServeMux) {
	if mux == nil {
		return
	}
	mux.HandleFunc("/livez", h.LivenessHandler())
	mux.HandleFunc("/readyz", h.ReadinessHandler())
	mux.HandleFunc("/metrics", h.MetricsHandler())
	mux.HandleFunc("/api/match", h.MatchHandler())
}

// LivenessHandler reports that the HTTP server is reachable.
func (h *HandlerSet) LivenessHandler() http.HandlerFunc {
	type response struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, response{
			Status:    "alive",
			Timestamp: h.now().UTC().Format(time.RFC3339Nano),
		})
	}
}

// ReadinessHandler reports readiness, including the match status and startup errors.
func (h *HandlerSet) ReadinessHandler() http.HandlerFunc {
	type response struct {
		Status        string  `json:"status"`
		Message       string  `json:"message,omitempty"`
		UptimeSeconds float64 `json:"uptime_seconds"`
		Match         string  `json:"match,omitempty"`
		Spectators    int     `json:"spectators"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		resp := response{Status: "ok"}
		if h.readiness != nil {
			resp.UptimeSeconds = h.readiness.Uptime().Seconds()
			if err := h.readiness.StartupError(); err != nil {
				status = http.StatusServiceUnavailable
				resp.Status = "error"
				resp.Message = err.Error()
			}
		}
		if h.match == nil {
			status = http.StatusServiceUnavailable
			resp.Status = "error"
			resp.Message = "match not running"
		} else {
			resp.Match = string(h.match.Stats().Status)
		}
		if h.spectators != nil {
			resp.Spectators = h.spectators.Clients()
		}
		writeJSON(w, status, resp)
	}
}

// MatchHandler returns the current match snapshot and HUD as JSON.
func (h *HandlerSet) MatchHandler() http.HandlerFunc {
	type response struct {
		Match match.Context `json:"match"`
		HUD   match.HUD     `json:"hud"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if h.rateLimiter != nil && !h.rateLimiter.Allow() {
			h.logger.Warn("match snapshot denied: rate limit exceeded", logging.String("remote_addr", r.RemoteAddr))
			setRetryAfter(w, h.rateLimiter)
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		if h.match == nil {
			http.Error(w, "match not running", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, response{Match: h.match.Snapshot(), HUD: h.match.HUD()})
	}
}

// MetricsHandler emits Prometheus compatible text metrics.
func (h *HandlerSet) MetricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		uptime := 0.0
		if h.readiness != nil {
			uptime = h.readiness.Uptime().Seconds()
		}
		gauge(w, "arena_uptime_seconds", "Process uptime in seconds.", "%.0f", uptime)
		if h.match != nil {
			writeMatchMetrics(w, h.match.Stats())
		}
		if h.ticks != nil {
			ticks := h.ticks()
			fmt.Fprintf(w, "# HELP arena_tick_duration_seconds Wall-clock cost of simulation steps.\n")
			fmt.Fprintf(w, "# TYPE arena_tick_duration_seconds gauge\n")
			fmt.Fprintf(w, "arena_tick_duration_seconds{stat=\"avg\"} %.6f\n", ticks.Average.Seconds())
			fmt.Fprintf(w, "arena_tick_duration_seconds{stat=\"max\"} %.6f\n", ticks.Max.Seconds())
			fmt.Fprintf(w, "arena_tick_duration_seconds{stat=\"last\"} %.6f\n", ticks.Last.Seconds())
			counter(w, "arena_ticks_observed_total", "Simulation steps observed by the tick monitor.", ticks.Samples)
			counter(w, "arena_tick_overruns_total", "Simulation steps slower than the frame budget.", ticks.Overruns)
		}
		if h.spectators != nil {
			gauge(w, "arena_spectators", "Connected spectator websockets.", "%d", h.spectators.Clients())
			counter(w, "arena_spectator_frames_total", "Frames written to spectators.", h.spectators.FramesSent())
			counter(w, "arena_spectator_rejected_total", "Spectator connections refused by the limiter.", h.spectators.Rejected())
			counter(w, "arena_spectator_unauthorized_total", "Spectator connections refused for a missing or invalid token.", h.spectators.Unauthorized())
		}
		if h.events != nil {
			counter(w, "arena_events_published_total", "Envelopes published on the event stream.", h.events())
		}
		if h.inputDrops != nil {
			writeInputDrops(w, h.inputDrops())
		}
	}
}

func writeMatchMetrics(w io.Writer, stats match.Stats) {
	fmt.Fprintf(w, "# HELP arena_match_status Current lifecycle status (one-hot).\n")
	fmt.Fprintf(w, "# TYPE arena_match_status gauge\n")
	for _, status := range []match.Status{match.StatusMenu, match.StatusPlaying, match.StatusOver} {
		fmt.Fprintf(w, "arena_match_status{status=%q} %d\n", status, oneHot(stats.Status == status))
	}
	fmt.Fprintf(w, "# HELP arena_match_phase Current round phase (one-hot).\n")
	fmt.Fprintf(w, "# TYPE arena_match_phase gauge\n")
	for _, phase := range []match.Phase{match.PhaseRegular, match.PhaseSuddenDeath, match.PhaseIntermission} {
		fmt.Fprintf(w, "arena_match_phase{phase=%q} %d\n", phase, oneHot(stats.Phase == phase))
	}
	gauge(w, "arena_survival_round", "Current survival round.", "%d", stats.Round)
	gauge(w, "arena_countdown_remaining_seconds", "Seconds left on the round clock.", "%d", stats.Remaining)
	gauge(w, "arena_projectiles_in_flight", "Projectiles currently travelling.", "%d", stats.Projectiles)
	counter(w, "arena_frames_total", "Render frames emitted.", stats.Tick)
	counter(w, "arena_cpu_attempts_total", "Attack attempts made by the CPU agent.", stats.CPUAttempts)
	counter(w, "arena_autopilot_attempts_total", "Attack attempts made by the autopilot.", stats.PilotAttempts)
	fmt.Fprintf(w, "# HELP arena_attacks_total Shots fired this round per player.\n")
	fmt.Fprintf(w, "# TYPE arena_attacks_total counter\n")
	for i, attacks := range stats.Attacks {
		fmt.Fprintf(w, "arena_attacks_total{player=\"%d\"} %d\n", i+1, attacks)
	}
	fmt.Fprintf(w, "# HELP arena_health Current health per player.\n")
	fmt.Fprintf(w, "# TYPE arena_health gauge\n")
	for i, health := range stats.Health {
		fmt.Fprintf(w, "arena_health{player=\"%d\"} %d\n", i+1, health)
	}
}

func writeInputDrops(w io.Writer, drops map[string]input.DropCounters) {
	fmt.Fprintf(w, "# HELP arena_input_dropped_total Key presses discarded by the input gate.\n")
	fmt.Fprintf(w, "# TYPE arena_input_dropped_total counter\n")
	//1.- Sort sources so scrapes are stable.
	sources := make([]string, 0, len(drops))
	for source := range drops {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	for _, source := range sources {
		counters := drops[source]
		for _, sample := range []struct {
			reason input.DropReason
			value  uint64
		}{
			{input.DropReasonSequence, counters.Sequence},
			{input.DropReasonStale, counters.Stale},
			{input.DropReasonRateLimited, counters.RateLimited},
		} {
			fmt.Fprintf(w, "arena_input_dropped_total{source=%q,reason=%q} %d\n", source, sample.reason, sample.value)
		}
	}
}

func gauge(w io.Writer, name, help, format string, value any) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s gauge\n", name)
	fmt.Fprintf(w, "%s "+format+"\n", name, value)
}

func counter(w io.Writer, name, help string, value any) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s counter\n", name)
	fmt.Fprintf(w, "%s %d\n", name, value)
}

// setRetryAfter advertises the limiter's wait in whole seconds when it can report one.
func setRetryAfter(w http.ResponseWriter, limiter RateLimiter) {
	waiter, ok := limiter.(interface{ RetryAfter() time.Duration })
	if !ok {
		return
	}
	if wait := waiter.RetryAfter(); wait > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
	}
}

func oneHot(on bool) int {
	if on {
		return 1
	}
	return 0
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}
