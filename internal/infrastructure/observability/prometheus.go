package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	urgencyEvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "urgency_evaluations_total",
			Help: "Total number of urgency evaluations by outcome",
		},
		[]string{"outcome"},
	)

	urgencyEvaluationAttemptsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "urgency_evaluation_attempts_total",
			Help: "Total number of completion attempts made by urgency evaluations",
		},
	)

	urgencyEvaluationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "urgency_evaluation_duration_seconds",
			Help:    "Urgency evaluation duration in seconds, retries included",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"outcome"},
	)

	urgencyFlagsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "urgency_flags_total",
			Help: "Urgency flags produced by successful evaluations",
		},
		[]string{"flag"},
	)

	episodesTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinical_attention_transitions_total",
			Help: "Clinical attention lifecycle transitions",
		},
		[]string{"transition"},
	)

	backgroundTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "background_tasks_total",
			Help: "Background tasks by name and status",
		},
		[]string{"task", "status"},
	)

	pertinenceImportRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pertinence_import_rows_total",
			Help: "Rows processed by insurer pertinence imports",
		},
		[]string{"result"},
	)
)

// PrometheusHandler exposes the default registry for scraping
func PrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// RecordUrgencyEvaluation records one finished evaluation. Outcome is one of
// success, fallback, unavailable or failed.
func RecordUrgencyEvaluation(outcome string, attempts int, duration time.Duration) {
	urgencyEvaluationsTotal.WithLabelValues(outcome).Inc()
	urgencyEvaluationAttemptsTotal.Add(float64(attempts))
	urgencyEvaluationDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordUrgencyFlag records the flag of a successful evaluation
func RecordUrgencyFlag(flag string) {
	urgencyFlagsTotal.WithLabelValues(flag).Inc()
}

// RecordEpisodeTransition records a clinical attention lifecycle change
func RecordEpisodeTransition(transition string) {
	episodesTransitionsTotal.WithLabelValues(transition).Inc()
}

// RecordBackgroundTask records the end state of a background task
func RecordBackgroundTask(task, status string) {
	backgroundTasksTotal.WithLabelValues(task, status).Inc()
}

// RecordPertinenceImport records the rows updated and skipped by one import
func RecordPertinenceImport(updated, skipped int) {
	pertinenceImportRowsTotal.WithLabelValues("updated").Add(float64(updated))
	pertinenceImportRowsTotal.WithLabelValues("skipped").Add(float64(skipped))
}
