package grpcapi

import (
	"context"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"stickduel/arena/internal/logging"
)

type stubServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *stubServerStream) Context() context.Context {
	return s.ctx
}

func TestSharedSecretInterceptorAcceptsValidSecret(t *testing.T) {
	interceptor := newSharedSecretStreamInterceptor("hunter2")
	md := metadata.New(map[string]string{SharedSecretMetadataKey: "hunter2"})
	stream := &stubServerStream{ctx: metadata.NewIncomingContext(context.Background(), md)}
	called := false
	handler := func(any, grpc.ServerStream) error {
		called = true
		return nil
	}
	if err := interceptor(nil, stream, &grpc.StreamServerInfo{}, handler); err != nil {
		t.Fatalf("interceptor returned error: %v", err)
	}
	if !called {
		t.Fatal("expected handler to be invoked for valid secret")
	}
}

func TestSharedSecretInterceptorRejectsMissingSecret(t *testing.T) {
	interceptor := newSharedSecretUnaryInterceptor("hunter2")
	handler := func(context.Context, any) (any, error) { return "ok", nil }
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{}, handler)
	if err == nil {
		t.Fatal("expected error for missing secret")
	}
	st, _ := status.FromError(err)
	if st.Code() != codes.Unauthenticated {
		t.Fatalf("expected unauthenticated code, got %v", st.Code())
	}
}

func TestSecurityOptionsDisabledWithoutSecret(t *testing.T) {
	if opts := SecurityOptions("  ", logging.NewTestLogger()); len(opts) != 0 {
		t.Fatalf("expected no interceptors without a secret, got %d", len(opts))
	}
	if opts := SecurityOptions("hunter2", logging.NewTestLogger()); len(opts) != 2 {
		t.Fatalf("expected unary and stream interceptors, got %d", len(opts))
	}
}
