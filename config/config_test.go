package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rategate.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("unexpected default server addr: %s", cfg.Server.Addr)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("unexpected default redis addr: %s", cfg.Redis.Addr)
	}
	rl := cfg.RateLimiter
	if rl.ReplenishRate != 10 || rl.BurstCapacity != 20 || rl.RequestedTokens != 1 {
		t.Errorf("unexpected default bucket: %+v", rl)
	}
	if !rl.IncludeHeaders || rl.RemainingHeader != "X-RateLimit-Remaining" {
		t.Errorf("unexpected default headers: %+v", rl)
	}
}

func TestLoad_FileValues(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  addr: ":9090"
redis:
  addr: "redis.internal:6379"
  eval_timeout: 250ms
rate_limiter:
  replenish_rate: 100
  burst_capacity: 200
  routes:
    orders:
      replenish_rate: 5
      burst_capacity: 10
      requested_tokens: 1
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("server addr not read: %s", cfg.Server.Addr)
	}
	if cfg.Redis.EvalTimeout.Milliseconds() != 250 {
		t.Errorf("eval timeout not decoded: %v", cfg.Redis.EvalTimeout)
	}
	table := cfg.RateLimiter.RouteTable()
	orders, ok := table["orders"]
	if !ok || orders.ReplenishRate != 5 || orders.BurstCapacity != 10 {
		t.Errorf("route table not built: %+v", table)
	}
	def := cfg.RateLimiter.DefaultConfig()
	if def.ReplenishRate != 100 || def.BurstCapacity != 200 {
		t.Errorf("default config not built: %+v", def)
	}
}

func TestLoad_RejectsBurstBelowRate(t *testing.T) {
	_, err := Load(writeConfig(t, `
rate_limiter:
  replenish_rate: 100
  burst_capacity: 50
`))
	if err == nil {
		t.Fatal("expected validation error for burst below rate")
	}
}

func TestLoad_RejectsInvalidRoute(t *testing.T) {
	_, err := Load(writeConfig(t, `
rate_limiter:
  routes:
    broken:
      replenish_rate: 10
      burst_capacity: 2
      requested_tokens: 1
`))
	if err == nil {
		t.Fatal("expected validation error for invalid route override")
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestHeaderConfigConversion(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
rate_limiter:
  include_headers: false
  remaining_header: "X-Quota-Left"
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	hc := cfg.RateLimiter.HeaderConfig()
	if hc.IncludeHeaders {
		t.Error("include_headers override not applied")
	}
	if hc.RemainingHeader != "X-Quota-Left" {
		t.Errorf("header name override not applied: %s", hc.RemainingHeader)
	}
}
