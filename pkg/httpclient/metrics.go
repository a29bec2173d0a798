package httpclient

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	backendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_requests_total",
			Help: "Total number of requests sent to the storefront backend API",
		},
		[]string{"method", "resource", "status"},
	)

	backendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backend_request_duration_seconds",
			Help:    "Storefront backend API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "resource"},
	)
)

// observe records one finished backend call. status is the HTTP status, or 0
// when the request never got an answer.
func observe(method, resource string, status int, started time.Time) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	backendRequestsTotal.WithLabelValues(method, resource, label).Inc()
	backendRequestDuration.WithLabelValues(method, resource).Observe(time.Since(started).Seconds())
}

// resourceLabel reduces an endpoint to its first path segment ("/orders/o1/status"
// becomes "orders") to keep label cardinality bounded.
func resourceLabel(endpoint string) string {
	if isAbsolute(endpoint) {
		return "external"
	}
	path := strings.TrimLeft(endpoint, "/")
	if i := strings.IndexAny(path, "/?"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "root"
	}
	return path
}
