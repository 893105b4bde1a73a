package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pitchside_fetch_attempts_total",
			Help: "Page fetch attempts by strategy and outcome",
		},
		[]string{"strategy", "outcome"},
	)

	fetchFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pitchside_fetch_failures_total",
			Help: "Fetches where every strategy failed",
		},
	)

	leagueCandidates = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pitchside_league_match_candidates",
			Help: "Match candidates parsed in the last sync of each league",
		},
		[]string{"league"},
	)

	structuralAlerts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pitchside_structural_change_alerts_total",
			Help: "Syncs of a previously healthy league that yielded no candidates",
		},
		[]string{"league"},
	)

	cadenceRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pitchside_cadence_runs_total",
			Help: "Scheduler cadence invocations by outcome",
		},
		[]string{"cadence", "outcome"},
	)

	cadenceDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pitchside_cadence_duration_seconds",
			Help:    "Wall time of scheduler cadence invocations",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 2400},
		},
		[]string{"cadence"},
	)

	itemOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pitchside_items_total",
			Help: "Per-entity sync outcomes",
		},
		[]string{"job", "status"},
	)
)

func init() {
	prometheus.MustRegister(fetchAttempts, fetchFailures)
	prometheus.MustRegister(leagueCandidates, structuralAlerts)
	prometheus.MustRegister(cadenceRuns, cadenceDuration, itemOutcomes)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func FetchAttempt(strategy string, ok bool) {
	outcome := "success"
	if !ok {
		outcome = "error"
	}
	fetchAttempts.WithLabelValues(strategy, outcome).Inc()
}

func FetchFailed() {
	fetchFailures.Inc()
}

func LeagueCandidates(league string, n int) {
	leagueCandidates.WithLabelValues(league).Set(float64(n))
}

func StructuralAlert(league string) {
	structuralAlerts.WithLabelValues(league).Inc()
}

func CadenceRun(cadence string, elapsed time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	cadenceRuns.WithLabelValues(cadence, outcome).Inc()
	cadenceDuration.WithLabelValues(cadence).Observe(elapsed.Seconds())
}

func ItemOutcome(job, status string) {
	itemOutcomes.WithLabelValues(job, status).Inc()
}
