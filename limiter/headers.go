package limiter

import "strconv"

// buildHeaders assembles the informational headers for one decision. Pure:
// no side effects, no failure modes. Returns an empty map when header
// emission is disabled.
func buildHeaders(cfg Config, hc HeaderConfig, remaining int64) map[string]string {
	headers := make(map[string]string)
	if !hc.IncludeHeaders {
		return headers
	}
	headers[hc.RemainingHeader] = strconv.FormatInt(remaining, 10)
	headers[hc.ReplenishRateHeader] = strconv.FormatInt(cfg.ReplenishRate, 10)
	headers[hc.BurstCapacityHeader] = strconv.FormatInt(cfg.BurstCapacity, 10)
	headers[hc.RequestedTokensHeader] = strconv.FormatInt(cfg.RequestedTokens, 10)
	return headers
}
