package limiter

import (
	"fmt"
)

// Default HTTP header names for the informational rate limit headers.
const (
	DefaultRemainingHeader       = "X-RateLimit-Remaining"
	DefaultReplenishRateHeader   = "X-RateLimit-Replenish-Rate"
	DefaultBurstCapacityHeader   = "X-RateLimit-Burst-Capacity"
	DefaultRequestedTokensHeader = "X-RateLimit-Requested-Tokens"
)

// Config holds the token bucket parameters for a single route.
type Config struct {
	// ReplenishRate is the number of tokens added to the bucket per second.
	ReplenishRate int64 `mapstructure:"replenish_rate"`
	// BurstCapacity is the maximum number of tokens the bucket can hold.
	BurstCapacity int64 `mapstructure:"burst_capacity"`
	// RequestedTokens is the number of tokens one request consumes.
	RequestedTokens int64 `mapstructure:"requested_tokens"`
}

// NewConfig builds a validated Config.
func NewConfig(replenishRate, burstCapacity, requestedTokens int64) (Config, error) {
	c := Config{
		ReplenishRate:   replenishRate,
		BurstCapacity:   burstCapacity,
		RequestedTokens: requestedTokens,
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the Config invariants. A Config that fails validation must
// never be published to a resolver table.
func (c Config) Validate() error {
	if c.ReplenishRate < 1 {
		return fmt.Errorf("%w: replenish rate must be at least 1, got %d", ErrInvalidConfig, c.ReplenishRate)
	}
	if c.RequestedTokens < 1 {
		return fmt.Errorf("%w: requested tokens must be at least 1, got %d", ErrInvalidConfig, c.RequestedTokens)
	}
	if c.BurstCapacity < c.ReplenishRate {
		return fmt.Errorf("%w: burst capacity %d must be greater than or equal to replenish rate %d",
			ErrInvalidConfig, c.BurstCapacity, c.ReplenishRate)
	}
	return nil
}

// ConfigUpdate carries a partial configuration change for one route.
// Nil fields keep their current value.
type ConfigUpdate struct {
	ReplenishRate   *int64 `json:"replenish_rate,omitempty"`
	BurstCapacity   *int64 `json:"burst_capacity,omitempty"`
	RequestedTokens *int64 `json:"requested_tokens,omitempty"`
}

// applyTo merges the update onto base without mutating it.
func (u ConfigUpdate) applyTo(base Config) Config {
	merged := base
	if u.ReplenishRate != nil {
		merged.ReplenishRate = *u.ReplenishRate
	}
	if u.BurstCapacity != nil {
		merged.BurstCapacity = *u.BurstCapacity
	}
	if u.RequestedTokens != nil {
		merged.RequestedTokens = *u.RequestedTokens
	}
	return merged
}

// HeaderConfig controls which informational headers a Response carries and
// under which names.
type HeaderConfig struct {
	IncludeHeaders        bool   `mapstructure:"include_headers"`
	RemainingHeader       string `mapstructure:"remaining_header"`
	ReplenishRateHeader   string `mapstructure:"replenish_rate_header"`
	BurstCapacityHeader   string `mapstructure:"burst_capacity_header"`
	RequestedTokensHeader string `mapstructure:"requested_tokens_header"`
}

// DefaultHeaderConfig returns the standard X-RateLimit-* header set with
// header emission enabled.
func DefaultHeaderConfig() HeaderConfig {
	return HeaderConfig{
		IncludeHeaders:        true,
		RemainingHeader:       DefaultRemainingHeader,
		ReplenishRateHeader:   DefaultReplenishRateHeader,
		BurstCapacityHeader:   DefaultBurstCapacityHeader,
		RequestedTokensHeader: DefaultRequestedTokensHeader,
	}
}
