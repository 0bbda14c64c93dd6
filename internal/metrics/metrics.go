package metrics

import (
	"regexp"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestDuration tracks HTTP request duration in seconds by method, path, status.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RequestTotal counts HTTP requests by method, path, status.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// FiringsTotal counts schedule firings by outcome (ok, scan_failed, notify_failed).
	FiringsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedule_firings_total",
			Help: "Total number of schedule firings by outcome",
		},
		[]string{"status"},
	)

	// ClaimConflictsTotal counts claims lost to a concurrent poller.
	ClaimConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "schedule_claim_conflicts_total",
			Help: "Total number of schedule claims lost to a concurrent poller",
		},
	)

	// DueSchedules is the number of due schedules seen on the last tick.
	DueSchedules = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "schedules_due_last_tick",
			Help: "Number of due schedules returned by the last poll tick",
		},
	)

	// FiringsInFlight is the number of firings currently dispatched.
	FiringsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "schedule_firings_in_flight",
			Help: "Number of schedule firings currently running",
		},
	)

	// ScanDuration tracks how long one scan-and-notify firing takes.
	ScanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "schedule_firing_duration_seconds",
			Help:    "Duration of one scan-and-notify firing in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)
)

var (
	uuidPathSegment    = regexp.MustCompile(`/[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}(/|$)`)
	numericPathSegment = regexp.MustCompile(`/[0-9]+(/|$)`)
	initOnce           sync.Once
)

func init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestDuration, RequestTotal,
			FiringsTotal, ClaimConflictsTotal, DueSchedules, FiringsInFlight, ScanDuration,
		)
	})
}

// NormalizePath reduces cardinality by replacing UUID and numeric path segments with {id}.
// E.g. /schedules/8b27c6c2-... -> /schedules/{id}.
func NormalizePath(path string) string {
	path = uuidPathSegment.ReplaceAllString(path, "/{id}$1")
	return numericPathSegment.ReplaceAllString(path, "/{id}$1")
}

// RecordRequest records duration and count for an HTTP request. Call from middleware with method, path, statusCode, duration.
func RecordRequest(method, path string, statusCode int, durationSeconds float64) {
	path = NormalizePath(path)
	status := strconv.Itoa(statusCode)
	RequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
	RequestTotal.WithLabelValues(method, path, status).Inc()
}

// RecordFiring records one completed firing with its outcome and duration.
func RecordFiring(status string, durationSeconds float64) {
	FiringsTotal.WithLabelValues(status).Inc()
	ScanDuration.Observe(durationSeconds)
}
