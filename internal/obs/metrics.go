package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP-level metrics shared by all handlers.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	classificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdpl_classifications_total",
			Help: "Classification requests by model type.",
		},
		[]string{"model_type"},
	)

	scansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdpl_scans_total",
			Help: "Finished scan jobs by source type and terminal status.",
		},
		[]string{"source_type", "status"},
	)

	ropaExportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdpl_ropa_exports_total",
			Help: "ROPA documents exported by format.",
		},
		[]string{"format"},
	)
)

// Init registers metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		classificationsTotal, scansTotal, ropaExportsTotal,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveClassification counts one classification request.
func ObserveClassification(modelType string) {
	classificationsTotal.WithLabelValues(modelType).Inc()
}

// ObserveScanFinished counts one scan reaching a terminal status.
func ObserveScanFinished(sourceType, status string) {
	scansTotal.WithLabelValues(sourceType, status).Inc()
}

// ObserveROPAExport counts one ROPA export.
func ObserveROPAExport(format string) {
	ropaExportsTotal.WithLabelValues(format).Inc()
}

// Instrument wraps a handler with RPS/latency/in-flight measurement.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// CanonicalPath collapses identifiers in request paths so metric label
// cardinality stays bounded (tenant ids, job ids, ropa ids).
func CanonicalPath(raw string) string {
	path := raw
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == "/" {
		return "/"
	}
	segs := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case len(segs) >= 2 && segs[0] == "scans":
		segs[1] = ":id"
	case len(segs) >= 2 && segs[1] == "ropa":
		segs[0] = ":tenant"
		if len(segs) >= 3 && segs[2] != "generate" && segs[2] != "list" && segs[2] != "preview" {
			segs[2] = ":id"
		}
	case len(segs) == 3 && segs[0] == "admin" && segs[1] == "companies" && segs[2] != "add" &&
		segs[2] != "search" && segs[2] != "stats" && segs[2] != "reload" &&
		segs[2] != "export" && segs[2] != "remove":
		// /admin/companies/list/{industry} keeps the verb, drops the value below
	case len(segs) == 4 && segs[0] == "admin" && segs[1] == "companies" && segs[2] == "list":
		segs[3] = ":industry"
	}
	return "/" + strings.Join(segs, "/")
}

// statusWriter records the response code for metric labels.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
