package limiter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements the Recorder interface on top of a Prometheus
// registry.
type PrometheusRecorder struct {
	decisions *prometheus.CounterVec
	failOpen  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
}

// NewPrometheusRecorder registers the limiter metrics with reg. Pass
// prometheus.DefaultRegisterer to use the default registry.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rategate",
			Name:      "decisions_total",
			Help:      "Completed rate limit decisions by route and outcome.",
		}, []string{"route", "outcome"}),
		failOpen: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rategate",
			Name:      "fail_open_total",
			Help:      "Decisions degraded to fail-open because the quota store was unavailable.",
		}, []string{"route"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rategate",
			Name:      "evaluation_seconds",
			Help:      "Latency of bucket evaluation calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

func (p *PrometheusRecorder) Add(name string, value float64, tags map[string]string) {
	switch name {
	case MetricDecision:
		p.decisions.WithLabelValues(tags["route"], tags["outcome"]).Add(value)
	case MetricFailOpen:
		p.failOpen.WithLabelValues(tags["route"]).Add(value)
	}
}

func (p *PrometheusRecorder) Observe(name string, value float64, tags map[string]string) {
	if name == MetricLatency {
		p.latency.WithLabelValues(tags["route"]).Observe(value)
	}
}

// Ensure PrometheusRecorder implements the Recorder interface
var _ Recorder = (*PrometheusRecorder)(nil)
