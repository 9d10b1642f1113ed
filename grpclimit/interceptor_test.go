package grpclimit

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/rategate/rategate/limiter"
)

// stubLimiter returns a fixed response and records the last call.
type stubLimiter struct {
	resp      limiter.Response
	err       error
	lastRoute string
	lastKey   string
	calls     int
}

func (s *stubLimiter) Allow(ctx context.Context, routeID, key string) (limiter.Response, error) {
	s.calls++
	s.lastRoute = routeID
	s.lastKey = key
	return s.resp, s.err
}

func peerContext(addr string) context.Context {
	tcpAddr, _ := net.ResolveTCPAddr("tcp", addr)
	return peer.NewContext(context.Background(), &peer.Peer{Addr: tcpAddr})
}

func TestUnaryInterceptor_Allowed(t *testing.T) {
	stub := &stubLimiter{resp: limiter.Response{Allowed: true, Headers: map[string]string{}}}
	interceptor := UnaryServerInterceptor(stub, PeerKey)

	handled := false
	_, err := interceptor(peerContext("10.0.0.1:50001"), nil,
		&grpc.UnaryServerInfo{FullMethod: "/orders.v1.OrderService/Create"},
		func(ctx context.Context, req any) (any, error) {
			handled = true
			return "ok", nil
		})
	if err != nil {
		t.Fatalf("interceptor failed: %v", err)
	}
	if !handled {
		t.Error("allowed call must reach the handler")
	}
	if stub.lastRoute != "/orders.v1.OrderService/Create" {
		t.Errorf("full method should be the route id, got %q", stub.lastRoute)
	}
	if stub.lastKey != "10.0.0.1" {
		t.Errorf("expected peer host key, got %q", stub.lastKey)
	}
}

func TestUnaryInterceptor_Denied(t *testing.T) {
	stub := &stubLimiter{resp: limiter.Response{Allowed: false, Headers: map[string]string{}}}
	interceptor := UnaryServerInterceptor(stub, PeerKey)

	_, err := interceptor(peerContext("10.0.0.1:50001"), nil,
		&grpc.UnaryServerInfo{FullMethod: "/orders.v1.OrderService/Create"},
		func(ctx context.Context, req any) (any, error) {
			t.Error("denied call must not reach the handler")
			return nil, nil
		})
	if status.Code(err) != codes.ResourceExhausted {
		t.Fatalf("expected ResourceExhausted, got %v", err)
	}
}

func TestUnaryInterceptor_FixedRoute(t *testing.T) {
	stub := &stubLimiter{resp: limiter.Response{Allowed: true, Headers: map[string]string{}}}
	interceptor := UnaryServerInterceptor(stub, PeerKey, WithRoute("orders"))

	interceptor(peerContext("10.0.0.1:50001"), nil,
		&grpc.UnaryServerInfo{FullMethod: "/orders.v1.OrderService/Create"},
		func(ctx context.Context, req any) (any, error) { return nil, nil })

	if stub.lastRoute != "orders" {
		t.Errorf("expected pinned route, got %q", stub.lastRoute)
	}
}

func TestUnaryInterceptor_EmptyKeySkipsLimiter(t *testing.T) {
	stub := &stubLimiter{resp: limiter.Response{Allowed: false, Headers: map[string]string{}}}
	interceptor := UnaryServerInterceptor(stub, MetadataKey("x-api-key"))

	handled := false
	_, err := interceptor(context.Background(), nil,
		&grpc.UnaryServerInfo{FullMethod: "/orders.v1.OrderService/Create"},
		func(ctx context.Context, req any) (any, error) {
			handled = true
			return nil, nil
		})
	if err != nil || !handled {
		t.Fatalf("anonymous call should pass through, err=%v handled=%v", err, handled)
	}
	if stub.calls != 0 {
		t.Error("limiter must not run for an empty key")
	}
}

func TestUnaryInterceptor_MetadataKey(t *testing.T) {
	stub := &stubLimiter{resp: limiter.Response{Allowed: true, Headers: map[string]string{}}}
	interceptor := UnaryServerInterceptor(stub, MetadataKey("x-api-key"))

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-api-key", "key_123"))
	interceptor(ctx, nil,
		&grpc.UnaryServerInfo{FullMethod: "/orders.v1.OrderService/Create"},
		func(ctx context.Context, req any) (any, error) { return nil, nil })

	if stub.lastKey != "key_123" {
		t.Errorf("expected metadata key, got %q", stub.lastKey)
	}
}

func TestUnaryInterceptor_ConfigErrorIsInternal(t *testing.T) {
	stub := &stubLimiter{err: limiter.ErrNoRouteConfig}
	interceptor := UnaryServerInterceptor(stub, PeerKey)

	_, err := interceptor(peerContext("10.0.0.1:50001"), nil,
		&grpc.UnaryServerInfo{FullMethod: "/orders.v1.OrderService/Create"},
		func(ctx context.Context, req any) (any, error) { return nil, nil })
	if status.Code(err) != codes.Internal {
		t.Fatalf("expected Internal for missing route config, got %v", err)
	}
}

// fakeStream is the minimal grpc.ServerStream for interceptor tests.
type fakeStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (f *fakeStream) Context() context.Context { return f.ctx }

func TestStreamInterceptor_Denied(t *testing.T) {
	stub := &stubLimiter{resp: limiter.Response{Allowed: false, Headers: map[string]string{}}}
	interceptor := StreamServerInterceptor(stub, PeerKey)

	err := interceptor(nil, &fakeStream{ctx: peerContext("10.0.0.1:50001")},
		&grpc.StreamServerInfo{FullMethod: "/orders.v1.OrderService/Watch"},
		func(srv any, stream grpc.ServerStream) error {
			t.Error("denied stream must not reach the handler")
			return nil
		})
	if status.Code(err) != codes.ResourceExhausted {
		t.Fatalf("expected ResourceExhausted, got %v", err)
	}
}

func TestStreamInterceptor_Allowed(t *testing.T) {
	stub := &stubLimiter{resp: limiter.Response{Allowed: true, Headers: map[string]string{}}}
	interceptor := StreamServerInterceptor(stub, PeerKey)

	handled := false
	err := interceptor(nil, &fakeStream{ctx: peerContext("10.0.0.1:50001")},
		&grpc.StreamServerInfo{FullMethod: "/orders.v1.OrderService/Watch"},
		func(srv any, stream grpc.ServerStream) error {
			handled = true
			return nil
		})
	if err != nil || !handled {
		t.Fatalf("allowed stream should reach the handler, err=%v handled=%v", err, handled)
	}
}

func TestPeerKey_NoPeer(t *testing.T) {
	if got := PeerKey(context.Background()); got != "" {
		t.Errorf("expected empty key without peer info, got %q", got)
	}
}
