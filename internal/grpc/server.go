package grpcapi

import (
	"context"
	"errors"
	"net"

	"google.golang.org/grpc"
	_ "google.golang.org/grpc/encoding/gzip"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"stickduel/arena/internal/logging"
)

// ServerConfig wires the gRPC server.
type ServerConfig struct {
	SharedSecret string
	Health       *HealthReporter
	Logger       *logging.Logger
}

// NewServer builds a gRPC server exposing the health service and reflection. Clients
// may request gzip compression.
func NewServer(cfg ServerConfig) *grpc.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.L()
	}
	server := grpc.NewServer(SecurityOptions(cfg.SharedSecret, logger)...)
	if cfg.Health != nil {
		healthpb.RegisterHealthServer(server, cfg.Health.Server())
	}
	reflection.Register(server)
	return server
}

// Serve runs server on lis until ctx is cancelled, then drains in-flight calls.
func Serve(ctx context.Context, server *grpc.Server, lis net.Listener, logger *logging.Logger) error {
	if server == nil || lis == nil {
		return errors.New("grpc server and listener required")
	}
	if logger == nil {
		logger = logging.L()
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("gRPC server listening", logging.String("address", lis.Addr().String()))
		errCh <- server.Serve(lis)
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	case <-ctx.Done():
		server.GracefulStop()
		<-errCh
		return nil
	}
}
