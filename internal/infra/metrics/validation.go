package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(validationRunsTotal, validationIssuesTotal) }

var validationRunsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "plan_validation_runs_total",
		Help: "Validation engine runs, labeled by verdict.",
	},
	[]string{"verdict"}, // 'pass', 'fail'
)

var validationIssuesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "plan_validation_issues_total",
		Help: "Individual rule violations, labeled by issue code.",
	},
	[]string{"code"},
)

func ObserveValidation(pass bool, codes []string) {
	verdict := "fail"
	if pass {
		verdict = "pass"
	}
	validationRunsTotal.WithLabelValues(verdict).Inc()
	for _, c := range codes {
		validationIssuesTotal.WithLabelValues(norm(c)).Inc()
	}
}
