// Package grpclimit applies rate limit decisions to inbound gRPC calls.
//
// The interceptors mirror the HTTP middleware: resolve a limiting key per
// call, ask the limiter for a verdict, attach the informational headers, and
// turn a denial into codes.ResourceExhausted. By default the full method name
// doubles as the route ID, so per-method limits fall out of the resolver's
// route table.
package grpclimit

import (
	"context"
	"net"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/rategate/rategate/limiter"
)

// KeyFunc extracts the limiting key for one call.
type KeyFunc func(ctx context.Context) string

// PeerKey keys calls on the caller's network address.
func PeerKey(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// MetadataKey keys calls on the first value of a metadata entry, e.g. an
// api-key or user-id header set by an auth layer.
func MetadataKey(name string) KeyFunc {
	return func(ctx context.Context) string {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return ""
		}
		values := md.Get(name)
		if len(values) == 0 {
			return ""
		}
		return values[0]
	}
}

type options struct {
	routeID func(fullMethod string) string
}

// Option configures the interceptors.
type Option func(*options)

// WithRoute pins all calls to a single route ID instead of keying the
// resolver table by full method name.
func WithRoute(routeID string) Option {
	return func(o *options) {
		o.routeID = func(string) string { return routeID }
	}
}

func buildOptions(opts []Option) options {
	o := options{
		routeID: func(fullMethod string) string { return fullMethod },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// check runs one decision and converts it to a gRPC error. A nil return
// means the call may proceed.
func check(ctx context.Context, l limiter.Limiter, routeID string, key KeyFunc) error {
	k := key(ctx)
	if k == "" {
		// No identity to charge; let the call through rather than billing
		// every anonymous caller to one shared bucket.
		log.Debug().Str("route", routeID).Msg("empty limiting key, skipping rate limit")
		return nil
	}

	resp, err := l.Allow(ctx, routeID, k)
	if err != nil {
		log.Error().Err(err).Str("route", routeID).Msg("rate limiter misconfigured")
		return status.Error(codes.Internal, "rate limiter misconfigured")
	}

	if len(resp.Headers) > 0 {
		// Best effort; streams that already sent headers will reject this.
		_ = grpc.SetHeader(ctx, metadata.New(resp.Headers))
	}
	if !resp.Allowed {
		return status.Error(codes.ResourceExhausted, "rate limit exceeded")
	}
	return nil
}

// UnaryServerInterceptor rate limits unary calls.
func UnaryServerInterceptor(l limiter.Limiter, key KeyFunc, opts ...Option) grpc.UnaryServerInterceptor {
	o := buildOptions(opts)
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if err := check(ctx, l, o.routeID(info.FullMethod), key); err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamServerInterceptor rate limits stream openings. The decision charges
// the stream once, at open; individual messages are not billed.
func StreamServerInterceptor(l limiter.Limiter, key KeyFunc, opts ...Option) grpc.StreamServerInterceptor {
	o := buildOptions(opts)
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if err := check(ss.Context(), l, o.routeID(info.FullMethod), key); err != nil {
			return err
		}
		return handler(srv, ss)
	}
}
