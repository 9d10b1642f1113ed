// Package confsync distributes per-route rate limit configuration changes to
// running limiter instances over Redis Pub/Sub.
//
// A Notifier publishes UpdateEvents on a channel; every instance runs a
// Listener that applies them to its local Resolver. Delivery is best-effort:
// an instance that misses an event keeps serving its previous (still valid)
// configuration, and invalid events are rejected by the Resolver without
// touching published state.
package confsync

import (
	"errors"

	"github.com/rategate/rategate/limiter"
)

// DefaultChannel is the Pub/Sub channel update events travel on.
const DefaultChannel = "rategate:config:updates"

var (
	// ErrEmptyRouteID is returned when an event does not name a route.
	ErrEmptyRouteID = errors.New("confsync: update event has empty route id")
)

// UpdateEvent is one per-route configuration change. Nil fields keep their
// current value (see limiter.ConfigUpdate).
type UpdateEvent struct {
	// EventID identifies the event for log correlation. The Notifier fills
	// it with a fresh UUID when left empty.
	EventID string `json:"event_id"`
	RouteID string `json:"route_id"`
	limiter.ConfigUpdate
}

// validate checks the event shape. Config-level validation happens in the
// resolver, where it is atomic with the merge.
func (e UpdateEvent) validate() error {
	if e.RouteID == "" {
		return ErrEmptyRouteID
	}
	return nil
}
