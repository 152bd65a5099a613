package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pipeline",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pipeline",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pipeline",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	submissions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pipeline",
			Subsystem: "applications",
			Name:      "submissions_total",
			Help:      "Total number of accepted application submissions.",
		},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pipeline",
			Subsystem: "applications",
			Name:      "transitions_total",
			Help:      "Total number of applied status transitions.",
		},
		[]string{"status"},
	)

	bulkItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pipeline",
			Subsystem: "applications",
			Name:      "bulk_items_total",
			Help:      "Per-item outcomes of bulk status updates.",
		},
		[]string{"outcome"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pipeline",
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Notification dispatch outcomes.",
		},
		[]string{"outcome"},
	)

	offersExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pipeline",
			Subsystem: "offers",
			Name:      "expired_total",
			Help:      "Total number of offers marked expired by the sweeper.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		submissions,
		transitions,
		bulkItems,
		notifications,
		offersExpired,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// ObserveSubmission counts an accepted submission.
func ObserveSubmission() {
	submissions.Inc()
}

// ObserveTransition counts a status transition by destination status.
func ObserveTransition(status string) {
	if status == "" {
		status = "unknown"
	}
	transitions.WithLabelValues(status).Inc()
}

// ObserveBulkItem counts a single bulk-update item outcome ("ok" or "failed").
func ObserveBulkItem(outcome string) {
	bulkItems.WithLabelValues(outcome).Inc()
}

// ObserveNotification counts a notification outcome ("sent", "failed" or "dropped").
func ObserveNotification(outcome string) {
	notifications.WithLabelValues(outcome).Inc()
}

// ObserveOfferExpired counts an offer expired by the sweeper.
func ObserveOfferExpired() {
	offersExpired.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "applications" {
		return "/" + parts[0]
	}
	if len(parts) == 1 {
		return "/applications"
	}
	if parts[1] == "bulk" || parts[1] == "statistics" {
		return "/applications/" + strings.Join(parts[1:], "/")
	}
	if len(parts) == 2 {
		return "/applications/:id"
	}
	if parts[2] == "interviews" {
		return "/applications/:id/interviews/:interview/feedback"
	}
	return "/applications/:id/" + strings.Join(parts[2:], "/")
}
