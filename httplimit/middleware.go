// Package httplimit applies rate limit decisions to inbound HTTP requests.
//
// The middleware resolves a limiting key per request, asks the limiter for a
// verdict, copies the informational headers onto the response, and turns a
// denial into 429 Too Many Requests. It is the HTTP face of the limiter; the
// decision logic itself lives in the limiter package.
package httplimit

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/rategate/rategate/limiter"
)

// Middleware wraps handlers with a per-route rate limit check.
type Middleware struct {
	limiter        limiter.Limiter
	resolver       KeyResolver
	routeID        func(r *http.Request) string
	denyStatus     int
	denyEmptyKey   bool
	emptyKeyStatus int
}

// Option configures a Middleware.
type Option func(*Middleware)

// WithDenyStatus overrides the status sent on a denied request.
// Defaults to 429 Too Many Requests.
func WithDenyStatus(status int) Option {
	return func(m *Middleware) {
		if status > 0 {
			m.denyStatus = status
		}
	}
}

// WithEmptyKeyPolicy controls requests whose key resolves empty. By default
// they are denied with 403 Forbidden; deny=false lets them pass unlimited.
func WithEmptyKeyPolicy(deny bool, status int) Option {
	return func(m *Middleware) {
		m.denyEmptyKey = deny
		if status > 0 {
			m.emptyKeyStatus = status
		}
	}
}

// WithRouteFunc derives the route ID from the request instead of using the
// fixed route the middleware was built with.
func WithRouteFunc(fn func(r *http.Request) string) Option {
	return func(m *Middleware) {
		if fn != nil {
			m.routeID = fn
		}
	}
}

// New creates a Middleware for one route.
func New(l limiter.Limiter, routeID string, resolver KeyResolver, opts ...Option) *Middleware {
	if l == nil {
		panic("httplimit: limiter cannot be nil")
	}
	if resolver == nil {
		panic("httplimit: key resolver cannot be nil")
	}
	m := &Middleware{
		limiter:        l,
		resolver:       resolver,
		routeID:        func(*http.Request) string { return routeID },
		denyStatus:     http.StatusTooManyRequests,
		denyEmptyKey:   true,
		emptyKeyStatus: http.StatusForbidden,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Wrap returns a handler that rate limits requests before passing them on.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := m.resolver.Resolve(r)
		if key == "" {
			if m.denyEmptyKey {
				log.Debug().Str("path", r.URL.Path).Msg("denying request with empty limiting key")
				w.WriteHeader(m.emptyKeyStatus)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		routeID := m.routeID(r)
		resp, err := m.limiter.Allow(r.Context(), routeID, key)
		if err != nil {
			// Only a missing route config reaches here; that is a deployment
			// bug, not a traffic condition.
			log.Error().Err(err).Str("route", routeID).Msg("rate limiter misconfigured")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		for name, value := range resp.Headers {
			w.Header().Set(name, value)
		}
		if !resp.Allowed {
			w.WriteHeader(m.denyStatus)
			return
		}
		next.ServeHTTP(w, r)
	})
}
