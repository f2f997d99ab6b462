package grpcapi

import (
	"context"
	"sync"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"stickduel/arena/internal/logging"
	"stickduel/arena/internal/match"
)

// MatchService is the health service name that tracks whether a round is being played.
const MatchService = "arena.Match"

// StatusFunc reports the current match status.
type StatusFunc func() match.Status

// HealthReporter mirrors the match lifecycle onto the standard gRPC health service.
// The process-wide "" service is SERVING for as long as the reporter is up.
type HealthReporter struct {
	server *health.Server
	logger *logging.Logger

	mu   sync.Mutex
	last healthpb.HealthCheckResponse_ServingStatus
}

// NewHealthReporter constructs a reporter with the match marked NOT_SERVING.
func NewHealthReporter(logger *logging.Logger) *HealthReporter {
	if logger == nil {
		logger = logging.L()
	}
	r := &HealthReporter{
		server: health.NewServer(),
		logger: logger,
		last:   healthpb.HealthCheckResponse_NOT_SERVING,
	}
	r.server.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	r.server.SetServingStatus(MatchService, healthpb.HealthCheckResponse_NOT_SERVING)
	return r
}

// Server exposes the underlying health implementation for registration.
func (r *HealthReporter) Server() *health.Server {
	if r == nil {
		return nil
	}
	return r.server
}

// Sync publishes the serving status implied by a match status.
func (r *HealthReporter) Sync(status match.Status) {
	if r == nil {
		return
	}
	next := healthpb.HealthCheckResponse_NOT_SERVING
	if status == match.StatusPlaying {
		next = healthpb.HealthCheckResponse_SERVING
	}
	r.mu.Lock()
	changed := next != r.last
	r.last = next
	r.mu.Unlock()
	if !changed {
		return
	}
	//1.- Only transitions reach the health server so Watch streams see one update each.
	r.server.SetServingStatus(MatchService, next)
	r.logger.Debug("match health changed",
		logging.String("service", MatchService),
		logging.String("status", next.String()),
	)
}

// Watch polls status every interval and syncs it until ctx is cancelled.
func (r *HealthReporter) Watch(ctx context.Context, status StatusFunc, interval time.Duration) error {
	if r == nil || status == nil {
		return nil
	}
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	r.Sync(status())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Sync(status())
		}
	}
}

// Shutdown marks every service NOT_SERVING so load balancers drain before the listener closes.
func (r *HealthReporter) Shutdown() {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.last = healthpb.HealthCheckResponse_NOT_SERVING
	r.mu.Unlock()
	r.server.Shutdown()
}
