package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobsFinishedTotal, jobDuration, orphanedJobs) }

var jobsFinishedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "plan_jobs_finished_total",
		Help: "Total number of generation jobs finished, labeled by status and task type.",
	},
	[]string{"status", "task_type"},
)

var jobDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "plan_job_duration_seconds",
		Help:    "Wall time from job start to terminal state.",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	},
	[]string{"task_type"},
)

var orphanedJobs = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "plan_jobs_orphaned",
		Help: "Jobs stuck in processing past the orphan ceiling after a restart.",
	},
)

func ObserveJobFinished(status, taskType string, seconds float64) {
	jobsFinishedTotal.WithLabelValues(norm(status), norm(taskType)).Inc()
	jobDuration.WithLabelValues(norm(taskType)).Observe(seconds)
}

func SetOrphanedJobs(n int) {
	orphanedJobs.Set(float64(n))
}
