package metrics

import "github.com/prometheus/client_golang/prometheus"

// Matching Prometheus metrics.
var (
	MatchRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lostfound",
			Name:      "match_duration_seconds",
			Help:      "End-to-end match scan duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"query_type"},
	)

	MatchCandidatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lostfound",
			Name:      "match_candidates_total",
			Help:      "Total candidates scored across all match requests",
		},
		[]string{"collection"},
	)

	ImageFetchFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lostfound",
			Name:      "image_fetch_failures_total",
			Help:      "Candidate/query image fetches that failed or timed out",
		},
	)
)

var matchMetricsRegistered bool

// RegisterMatchingMetrics registers matching metrics. Must be called once from main.
func RegisterMatchingMetrics() {
	if matchMetricsRegistered {
		return
	}
	prometheus.MustRegister(MatchRequestDuration)
	prometheus.MustRegister(MatchCandidatesTotal)
	prometheus.MustRegister(ImageFetchFailuresTotal)
	matchMetricsRegistered = true
}
