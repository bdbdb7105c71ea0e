package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rainmatrix",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rainmatrix",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"method", "route"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rainmatrix",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Page cache lookups by result.",
		},
		[]string{"result"},
	)

	cachePruned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rainmatrix",
			Subsystem: "cache",
			Name:      "pruned_rows_total",
			Help:      "Rows removed by retention pruning.",
		},
	)

	upstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rainmatrix",
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Requests sent to the forecast provider.",
		},
		[]string{"endpoint", "success"},
	)

	upstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rainmatrix",
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Duration of forecast provider requests.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"endpoint"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		cacheLookups,
		cachePruned,
		upstreamRequests,
		upstreamDuration,
	)
}

// Handler exposes the registry for scraping.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler records request counts and latency keyed by the chi
// route pattern, so path parameters don't explode label cardinality.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(result).Inc()
}

func RecordCachePruned(n int64) {
	if n > 0 {
		cachePruned.Add(float64(n))
	}
}

func RecordUpstream(endpoint string, d time.Duration, err error) {
	upstreamRequests.WithLabelValues(endpoint, strconv.FormatBool(err == nil)).Inc()
	upstreamDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}
