// Package metrics provides Prometheus instrumentation for the ledger engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// OperationsTotal counts ledger operations by kind and outcome.
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polkavault_ledger_operations_total",
		Help: "Total ledger operations processed",
	}, []string{"operation", "outcome"})

	// OperationDuration tracks ledger operation latency by kind.
	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "polkavault_ledger_operation_duration_seconds",
		Help:    "Ledger operation duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"operation"})

	// VersionConflicts counts optimistic-concurrency retries.
	VersionConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polkavault_version_conflicts_total",
		Help: "Version conflicts encountered by mutating operations",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polkavault_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})
)

// Observe records one ledger operation's outcome and duration.
func Observe(operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	OperationsTotal.WithLabelValues(operation, outcome).Inc()
	OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request metrics for every route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Use the route pattern for the path label to avoid high cardinality.
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
