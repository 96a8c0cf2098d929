// Package metrics provides Prometheus instrumentation for the data-access
// paths and the HTTP API.
//
// SQL statement latency is recorded by the GORM plugin installed by
// pkg/database; hosted API latency by pkg/supabase. Both end up on:
//
//	r.Handle("/metrics", metrics.Handler())
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "crud"

var (
	// RequestDuration tracks how long each HTTP API request takes.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RequestTotal counts all HTTP API requests.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	// RequestInFlight tracks how many requests are currently being served.
	RequestInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "Number of HTTP requests currently being served.",
	})

	// DBQueryDuration tracks SQL statement latency on the direct-driver path.
	DBQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Duration of database queries in seconds.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .5, 1},
		},
		[]string{"operation"}, // "select" | "insert" | "update" | "delete" | "raw"
	)

	// DBQueryErrors counts SQL statements that returned an error.
	DBQueryErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Total database statements that failed.",
		},
		[]string{"operation"},
	)

	// HostedRequestDuration tracks calls to the hosted backend's REST API.
	HostedRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "hosted",
			Name:      "request_duration_seconds",
			Help:      "Duration of hosted backend API calls in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "resource", "status"},
	)

	// RealtimeChanges counts row changes received over the Realtime socket.
	RealtimeChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hosted",
			Name:      "realtime_changes_total",
			Help:      "Row changes received from the hosted backend's change feed.",
		},
		[]string{"table", "type"}, // type: "INSERT" | "UPDATE" | "DELETE"
	)

	// OperationOutcomes counts service-level outcomes per operation.
	OperationOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Store operations by outcome.",
		},
		[]string{"operation", "outcome"}, // outcome: "ok" | "missing" | "failed"
	)
)

// DefaultRegistry is the Prometheus registry exposed by Handler.
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(collectors.NewGoCollector())
	DefaultRegistry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	DefaultRegistry.MustRegister(
		RequestDuration,
		RequestTotal,
		RequestInFlight,
		DBQueryDuration,
		DBQueryErrors,
		HostedRequestDuration,
		RealtimeChanges,
		OperationOutcomes,
	)
}

// responseRecorder wraps http.ResponseWriter to capture the status code.
type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records duration, count and in-flight gauge for every request.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			RequestInFlight.Inc()
			defer RequestInFlight.Dec()

			rr := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rr, r)

			// The matched pattern keeps ids out of the label values.
			path := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					path = pattern
				}
			}
			status := strconv.Itoa(rr.status)
			RequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
			RequestTotal.WithLabelValues(r.Method, path, status).Inc()
		})
	}
}

// Handler exposes the registry in the Prometheus text and OpenMetrics formats.
func Handler() http.HandlerFunc {
	h := promhttp.HandlerFor(DefaultRegistry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	return h.ServeHTTP
}

// ObserveDBQuery records a statement duration:
//
//	defer metrics.ObserveDBQuery("select", time.Now())
func ObserveDBQuery(operation string, start time.Time) {
	DBQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveHostedRequest records one hosted API call.
func ObserveHostedRequest(method, resource string, status int, start time.Time) {
	HostedRequestDuration.WithLabelValues(method, resource, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
}

// RecordRealtimeChange counts one change delivered on table.
func RecordRealtimeChange(table, kind string) {
	RealtimeChanges.WithLabelValues(table, kind).Inc()
}

// RecordOutcome counts one service-level result.
func RecordOutcome(operation, outcome string) {
	OperationOutcomes.WithLabelValues(operation, outcome).Inc()
}
