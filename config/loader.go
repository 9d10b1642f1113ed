package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/rategate/rategate/limiter"
)

// Load reads the configuration from path, applies environment overrides
// (RATEGATE_REDIS_ADDR overrides redis.addr, and so on), fills defaults, and
// validates the result. An empty path searches for rategate.yaml in the
// working directory and /etc/rategate.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("rategate")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/rategate")
	}

	v.SetEnvPrefix("RATEGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine when no explicit path was given: the
		// process can run on defaults and environment overrides alone.
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound || path != "" {
			return nil, fmt.Errorf("config: failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.eval_timeout", "1s")

	v.SetDefault("rate_limiter.replenish_rate", 10)
	v.SetDefault("rate_limiter.burst_capacity", 20)
	v.SetDefault("rate_limiter.requested_tokens", 1)
	v.SetDefault("rate_limiter.include_headers", true)
	v.SetDefault("rate_limiter.remaining_header", limiter.DefaultRemainingHeader)
	v.SetDefault("rate_limiter.replenish_rate_header", limiter.DefaultReplenishRateHeader)
	v.SetDefault("rate_limiter.burst_capacity_header", limiter.DefaultBurstCapacityHeader)
	v.SetDefault("rate_limiter.requested_tokens_header", limiter.DefaultRequestedTokensHeader)
	v.SetDefault("rate_limiter.update_channel", "rategate:config:updates")
}
