package limiter

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// DefaultFiltersKey is the distinguished table slot consulted when a route
// has no entry of its own and no default config was supplied at construction.
const DefaultFiltersKey = "defaultFilters"

// Resolver maps route IDs to validated rate limit configurations.
//
// Reads take a lock-free snapshot of the table, so decisions never block on a
// concurrent update. Updates copy the table, validate the merged entry, and
// publish the new snapshot atomically; readers can never observe a
// half-applied config.
type Resolver struct {
	table         atomic.Pointer[map[string]Config]
	updateMu      sync.Mutex // serializes writers of table
	defaultConfig *Config
}

// NewResolver builds a resolver from the static per-route table and an
// optional default config. Every entry is validated up front; an invalid
// entry fails construction, since deploying a route with a broken limit is a
// setup error.
func NewResolver(routes map[string]Config, defaultConfig *Config) (*Resolver, error) {
	table := make(map[string]Config, len(routes))
	for routeID, cfg := range routes {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("route %s: %w", routeID, err)
		}
		table[routeID] = cfg
	}
	if defaultConfig != nil {
		if err := defaultConfig.Validate(); err != nil {
			return nil, fmt.Errorf("default config: %w", err)
		}
		cp := *defaultConfig
		defaultConfig = &cp
	}

	r := &Resolver{defaultConfig: defaultConfig}
	r.table.Store(&table)
	return r, nil
}

// Resolve returns the configuration for routeID.
//
// Lookup order: route entry, constructor default, defaultFilters slot. When
// none exists the route is undeployable and ErrNoRouteConfig is returned.
func (r *Resolver) Resolve(routeID string) (Config, error) {
	table := *r.table.Load()
	if cfg, ok := table[routeID]; ok {
		return cfg, nil
	}
	if r.defaultConfig != nil {
		return *r.defaultConfig, nil
	}
	if cfg, ok := table[DefaultFiltersKey]; ok {
		return cfg, nil
	}
	return Config{}, fmt.Errorf("%w: %s", ErrNoRouteConfig, routeID)
}

// Update applies a partial configuration change to one route.
//
// The update is merged onto the route's current effective config (falling
// back to the default, then the defaultFilters slot, then a zero config) and
// validated before it is published. An invalid merge is rejected and the
// previous configuration stays in effect.
func (r *Resolver) Update(routeID string, update ConfigUpdate) error {
	r.updateMu.Lock()
	defer r.updateMu.Unlock()

	current := *r.table.Load()

	base, ok := current[routeID]
	if !ok {
		switch {
		case r.defaultConfig != nil:
			base = *r.defaultConfig
		default:
			base = current[DefaultFiltersKey] // zero Config when absent
		}
	}

	merged := update.applyTo(base)
	if err := merged.Validate(); err != nil {
		log.Warn().Err(err).Str("route", routeID).Msg("rejected rate limit config update")
		return err
	}

	next := make(map[string]Config, len(current)+1)
	for id, cfg := range current {
		next[id] = cfg
	}
	next[routeID] = merged
	r.table.Store(&next)

	log.Info().
		Str("route", routeID).
		Int64("replenish_rate", merged.ReplenishRate).
		Int64("burst_capacity", merged.BurstCapacity).
		Int64("requested_tokens", merged.RequestedTokens).
		Msg("rate limit config updated")
	return nil
}

// Snapshot returns a copy of the current route table.
func (r *Resolver) Snapshot() map[string]Config {
	table := *r.table.Load()
	out := make(map[string]Config, len(table))
	for id, cfg := range table {
		out[id] = cfg
	}
	return out
}
