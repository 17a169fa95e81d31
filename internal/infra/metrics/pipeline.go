package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(tierAttemptsTotal, generateLatency) }

var tierAttemptsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "plan_pipeline_tier_attempts_total",
		Help: "Generation attempts per tier, labeled by outcome (accepted, rejected, failed).",
	},
	[]string{"tier", "outcome"},
)

var generateLatency = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "plan_pipeline_generate_seconds",
		Help:    "Latency of a single tier's generation attempt.",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	},
	[]string{"tier"},
)

func ObserveTier(tier, outcome string, seconds float64) {
	tierAttemptsTotal.WithLabelValues(norm(tier), norm(outcome)).Inc()
	generateLatency.WithLabelValues(norm(tier)).Observe(seconds)
}
