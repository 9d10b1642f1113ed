// Package config loads and validates the rategate configuration from a YAML
// file with environment variable overrides.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rategate/rategate/limiter"
)

// Config is the full process configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Redis       RedisConfig       `mapstructure:"redis"`
	RateLimiter RateLimiterConfig `mapstructure:"rate_limiter"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// RedisConfig configures the shared quota store client.
type RedisConfig struct {
	Addr        string        `mapstructure:"addr" validate:"required,hostname_port"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db" validate:"gte=0"`
	EvalTimeout time.Duration `mapstructure:"eval_timeout"`
}

// RouteConfig is the per-route override of the bucket parameters.
type RouteConfig struct {
	ReplenishRate   int64 `mapstructure:"replenish_rate" validate:"gte=1"`
	BurstCapacity   int64 `mapstructure:"burst_capacity" validate:"gte=1"`
	RequestedTokens int64 `mapstructure:"requested_tokens" validate:"gte=1"`
}

// RateLimiterConfig mirrors the limiter's configuration surface: the default
// bucket, per-route overrides, header emission, and the update channel.
type RateLimiterConfig struct {
	ReplenishRate   int64 `mapstructure:"replenish_rate" validate:"gte=1"`
	BurstCapacity   int64 `mapstructure:"burst_capacity" validate:"gte=1"`
	RequestedTokens int64 `mapstructure:"requested_tokens" validate:"gte=1"`

	IncludeHeaders        bool   `mapstructure:"include_headers"`
	RemainingHeader       string `mapstructure:"remaining_header" validate:"required"`
	ReplenishRateHeader   string `mapstructure:"replenish_rate_header" validate:"required"`
	BurstCapacityHeader   string `mapstructure:"burst_capacity_header" validate:"required"`
	RequestedTokensHeader string `mapstructure:"requested_tokens_header" validate:"required"`

	Routes        map[string]RouteConfig `mapstructure:"routes" validate:"dive"`
	UpdateChannel string                 `mapstructure:"update_channel" validate:"required"`
}

// Validate checks struct tags plus the cross-field bucket invariants the
// tags cannot express (burst capacity >= replenish rate, per route).
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if err := c.RateLimiter.DefaultConfig().Validate(); err != nil {
		return fmt.Errorf("config: rate_limiter: %w", err)
	}
	for routeID := range c.RateLimiter.Routes {
		rc := c.RateLimiter.Routes[routeID]
		cfg := limiter.Config{
			ReplenishRate:   rc.ReplenishRate,
			BurstCapacity:   rc.BurstCapacity,
			RequestedTokens: rc.RequestedTokens,
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config: rate_limiter.routes.%s: %w", routeID, err)
		}
	}
	return nil
}

// DefaultConfig returns the default bucket as a limiter.Config.
func (c RateLimiterConfig) DefaultConfig() limiter.Config {
	return limiter.Config{
		ReplenishRate:   c.ReplenishRate,
		BurstCapacity:   c.BurstCapacity,
		RequestedTokens: c.RequestedTokens,
	}
}

// RouteTable returns the per-route overrides as a resolver table.
func (c RateLimiterConfig) RouteTable() map[string]limiter.Config {
	table := make(map[string]limiter.Config, len(c.Routes))
	for routeID, rc := range c.Routes {
		table[routeID] = limiter.Config{
			ReplenishRate:   rc.ReplenishRate,
			BurstCapacity:   rc.BurstCapacity,
			RequestedTokens: rc.RequestedTokens,
		}
	}
	return table
}

// HeaderConfig returns the header emission settings as a limiter.HeaderConfig.
func (c RateLimiterConfig) HeaderConfig() limiter.HeaderConfig {
	return limiter.HeaderConfig{
		IncludeHeaders:        c.IncludeHeaders,
		RemainingHeader:       c.RemainingHeader,
		ReplenishRateHeader:   c.ReplenishRateHeader,
		BurstCapacityHeader:   c.BurstCapacityHeader,
		RequestedTokensHeader: c.RequestedTokensHeader,
	}
}
