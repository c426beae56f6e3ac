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
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skytonight_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skytonight_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skytonight_runs_total",
			Help: "Visibility runs by outcome.",
		},
		[]string{"outcome"},
	)

	runDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "skytonight_run_duration_seconds",
			Help:    "Duration of a complete visibility run.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	objectsScannedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skytonight_objects_scanned_total",
			Help: "Objects scanned by outcome (visible, not_visible, unknown_object, transform_error).",
		},
		[]string{"outcome"},
	)

	observationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skytonight_observations_total",
			Help: "Hourly observations emitted across all runs.",
		},
	)

	twilightDegradedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skytonight_twilight_degraded_total",
			Help: "Runs where no dusk crossing was found and the default window was kept.",
		},
	)

	lookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skytonight_lookups_total",
			Help: "External lookups by service and outcome.",
		},
		[]string{"service", "outcome"},
	)

	lookupDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skytonight_lookup_duration_seconds",
			Help:    "External lookup latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	breakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "skytonight_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open).",
		},
		[]string{"name"},
	)

	reportCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skytonight_report_cache_hits_total",
			Help: "Report cache hits.",
		},
	)

	reportCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skytonight_report_cache_misses_total",
			Help: "Report cache misses.",
		},
	)

	reportCacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "skytonight_report_cache_entries",
			Help: "Reports currently held in the cache.",
		},
	)

	reportCacheEvictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skytonight_report_cache_evictions_total",
			Help: "Reports removed from the cache, by reason.",
		},
		[]string{"reason"},
	)

	catalogObjects = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "skytonight_catalog_objects",
			Help: "Objects in the loaded catalog.",
		},
	)

	catalogAge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "skytonight_catalog_age_seconds",
			Help: "Seconds since the catalog was loaded, -1 before the first load.",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
	prometheus.MustRegister(runsTotal)
	prometheus.MustRegister(runDurationSeconds)
	prometheus.MustRegister(objectsScannedTotal)
	prometheus.MustRegister(observationsTotal)
	prometheus.MustRegister(twilightDegradedTotal)
	prometheus.MustRegister(lookupsTotal)
	prometheus.MustRegister(lookupDurationSeconds)
	prometheus.MustRegister(breakerState)
	prometheus.MustRegister(reportCacheHits)
	prometheus.MustRegister(reportCacheMisses)
	prometheus.MustRegister(reportCacheEntries)
	prometheus.MustRegister(reportCacheEvictions)
	prometheus.MustRegister(catalogObjects)
	prometheus.MustRegister(catalogAge)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRun records a finished visibility run.
func RecordRun(d time.Duration, outcome string) {
	runsTotal.WithLabelValues(outcome).Inc()
	runDurationSeconds.Observe(d.Seconds())
}

// RecordObject counts one scanned object.
func RecordObject(outcome string) {
	objectsScannedTotal.WithLabelValues(outcome).Inc()
}

// AddObservations counts emitted hourly observations.
func AddObservations(n int) {
	observationsTotal.Add(float64(n))
}

// RecordTwilightDegraded counts a run that kept the default window.
func RecordTwilightDegraded() {
	twilightDegradedTotal.Inc()
}

// RecordLookup records one external lookup attempt sequence.
func RecordLookup(service, outcome string, d time.Duration) {
	lookupsTotal.WithLabelValues(service, outcome).Inc()
	lookupDurationSeconds.WithLabelValues(service).Observe(d.Seconds())
}

// SetBreakerState publishes a circuit breaker state.
func SetBreakerState(name string, state float64) {
	breakerState.WithLabelValues(name).Set(state)
}

// RecordReportCache records a cache hit or miss.
func RecordReportCache(hit bool) {
	if hit {
		reportCacheHits.Inc()
		return
	}
	reportCacheMisses.Inc()
}

// SetReportCacheEntries publishes the report cache size.
func SetReportCacheEntries(n int) {
	reportCacheEntries.Set(float64(n))
}

// AddReportCacheEvictions counts removed reports. reason is "expired",
// "capacity" or "catalog_changed".
func AddReportCacheEvictions(reason string, n int) {
	reportCacheEvictions.WithLabelValues(reason).Add(float64(n))
}

// SetCatalogObjects publishes the catalog size.
func SetCatalogObjects(n int) {
	catalogObjects.Set(float64(n))
}

// SetCatalogAge publishes how old the loaded catalog is.
func SetCatalogAge(seconds float64) {
	catalogAge.Set(seconds)
}

// knownRoutes are exact paths reported as their own label.
var knownRoutes = map[string]bool{
	"/":                   true,
	"/healthz":            true,
	"/readyz":             true,
	"/metrics":            true,
	"/api/v1/tonight":     true,
	"/api/v1/catalog":     true,
	"/api/v1/cache/stats": true,
}

// normalizeRoute maps a request path onto a bounded set of labels so that
// arbitrary object ids and bot probes cannot blow up metric cardinality.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if rest, ok := strings.CutPrefix(path, "/api/v1/catalog/"); ok && rest != "" && !strings.Contains(rest, "/") {
		return "/api/v1/catalog/{id}"
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
