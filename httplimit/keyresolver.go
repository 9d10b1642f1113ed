package httplimit

import (
	"net"
	"net/http"
	"strings"
)

// KeyResolver extracts the limiting key (the identity quota is tracked
// against) from a request. Returning an empty key triggers the middleware's
// empty-key policy.
type KeyResolver interface {
	Resolve(r *http.Request) string
}

// KeyResolverFunc adapts a function to the KeyResolver interface.
type KeyResolverFunc func(r *http.Request) string

func (f KeyResolverFunc) Resolve(r *http.Request) string { return f(r) }

// IPKeyResolver keys requests on the client IP address.
type IPKeyResolver struct {
	// TrustForwardedFor uses the first X-Forwarded-For hop when present.
	// Only enable behind a proxy that sanitizes the header.
	TrustForwardedFor bool
}

func (k IPKeyResolver) Resolve(r *http.Request) string {
	if k.TrustForwardedFor {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			return strings.TrimSpace(first)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// HeaderKeyResolver keys requests on a header value, e.g. an API key or
// authenticated user id header.
type HeaderKeyResolver struct {
	Header string
}

func (k HeaderKeyResolver) Resolve(r *http.Request) string {
	return r.Header.Get(k.Header)
}
