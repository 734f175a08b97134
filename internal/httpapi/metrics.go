package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"spacelens/internal/session"
)

// Rejection reasons for 409 responses.
const (
	ReasonLayoutUnknown    = "layout_unknown"
	ReasonBusy             = "busy"
	ReasonGenerateNotReady = "generate_not_ready"
	ReasonUnspecified      = "unspecified"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spacelens",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route pattern, method and status code",
		},
		[]string{"route", "method", "code"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "spacelens",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	httpResponseBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "spacelens",
			Subsystem: "http",
			Name:      "response_bytes",
			Help:      "Size of HTTP response bodies as written to the client",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
		},
		[]string{"route"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "spacelens",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "In-flight HTTP requests",
		},
	)

	pointsAccepted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spacelens",
			Subsystem: "http",
			Name:      "points_accepted_total",
			Help:      "Points accepted into a session, by source (touch or points)",
		},
		[]string{"source"},
	)

	rejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spacelens",
			Subsystem: "http",
			Name:      "rejections_total",
			Help:      "Requests refused because the session was not in a state to accept them (409)",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, httpResponseBytes, httpInflight, pointsAccepted, rejectionsTotal)
}

// MetricsMiddleware instruments requests for Prometheus. Labels are taken
// after routing so the chi pattern, not the raw path, is recorded.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInflight.Inc()
		defer httpInflight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := routePatternOrPath(r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
		httpResponseBytes.WithLabelValues(route).Observe(float64(ww.BytesWritten()))
	})
}

// routePatternOrPath returns the chi route pattern when the request was
// routed. Unrouted requests are labeled "unmatched" to bound cardinality.
func routePatternOrPath(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
		return "unmatched"
	}
	return r.URL.Path
}

// IncrementRejection counts a 409 response by reason.
func IncrementRejection(reason string) {
	if reason == "" {
		reason = ReasonUnspecified
	}
	rejectionsTotal.WithLabelValues(reason).Inc()
}

func rejectionReason(err error) string {
	switch {
	case session.IsLayoutUnknown(err):
		return ReasonLayoutUnknown
	case errors.Is(err, session.ErrBusy):
		return ReasonBusy
	default:
		return ReasonUnspecified
	}
}
