package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the HTTP request collectors.
type Metrics struct {
	duration *prometheus.HistogramVec
	total    *prometheus.CounterVec
	respSize *prometheus.HistogramVec
}

// NewMetrics creates unregistered collectors; call Register.
func NewMetrics() *Metrics {
	labels := []string{"method", "path", "status"}
	return &Metrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		}, labels),
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, labels),
		respSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 6),
		}, labels),
	}
}

// Register registers all collectors with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.duration, m.total, m.respSize} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Observe records one finished request.
func (m *Metrics) Observe(method, path string, status int, d time.Duration, size int64) {
	l := prometheus.Labels{"method": method, "path": path, "status": strconv.Itoa(status)}
	m.duration.With(l).Observe(d.Seconds())
	m.total.With(l).Inc()
	m.respSize.With(l).Observe(float64(size))
}

// HTTPMetrics records request metrics. Probe endpoints are skipped.
func HTTPMetrics(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" || r.URL.Path == "/ready" {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r)
			m.Observe(r.Method, normalizePath(r.URL.Path), rw.statusCode, time.Since(start), rw.size)
		})
	}
}

// normalizePath replaces store and company IDs with placeholders so label
// cardinality stays bounded: /api/v1/stores/42/benchmark → /api/v1/stores/{id}/benchmark.
func normalizePath(path string) string {
	const prefix = "/api/v1/"
	if !strings.HasPrefix(path, prefix) {
		return path
	}
	parts := strings.Split(strings.TrimPrefix(path, prefix), "/")
	if len(parts) >= 2 && (parts[0] == "stores" || parts[0] == "companies") {
		switch parts[1] {
		case "rank", "average-rank":
			// static company routes
		default:
			parts[1] = "{id}"
		}
	}
	return prefix + strings.Join(parts, "/")
}
