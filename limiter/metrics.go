package limiter

// Metric names emitted by the RateLimiter.
const (
	// MetricDecision counts completed decisions, tagged with route and
	// outcome ("allowed" or "denied").
	MetricDecision = "ratelimit.decision"
	// MetricFailOpen counts decisions degraded to fail-open, tagged with route.
	MetricFailOpen = "ratelimit.fail_open"
	// MetricLatency observes evaluator call latency in seconds, tagged with route.
	MetricLatency = "ratelimit.latency"
)

// Recorder receives limiter metrics. Implementations must be safe for
// concurrent use.
type Recorder interface {
	Add(name string, value float64, tags map[string]string)
	Observe(name string, value float64, tags map[string]string)
}

// NoopRecorder is a placeholder that does nothing. It ensures the hot path
// never has to nil-check the recorder.
type NoopRecorder struct{}

func (NoopRecorder) Add(name string, value float64, tags map[string]string)     {}
func (NoopRecorder) Observe(name string, value float64, tags map[string]string) {}
