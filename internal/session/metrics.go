package session

import "github.com/prometheus/client_golang/prometheus"

const (
	kindSegment  = "segment"
	kindGenerate = "generate"

	outcomeOK    = "ok"
	outcomeError = "error"
	outcomeStale = "stale"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spacelens",
			Subsystem: "session",
			Name:      "requests_total",
			Help:      "Completed remote requests by kind and outcome (ok, error, stale)",
		},
		[]string{"kind", "outcome"},
	)

	requestsInflight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "spacelens",
			Subsystem: "session",
			Name:      "inflight_requests",
			Help:      "Remote requests currently in flight, including superseded ones",
		},
		[]string{"kind"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "spacelens",
			Subsystem: "session",
			Name:      "request_duration_seconds",
			Help:      "Duration of remote segmentation and generation calls",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal, requestsInflight, requestDuration)
}
