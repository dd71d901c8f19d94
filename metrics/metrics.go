// Package metrics provides Prometheus metrics for node operations, the
// activity pipeline and the HTTP API.
package metrics

import (
	"errors"
	"time"

	"github.com/aquilax/sitetree/node"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sitetree"

var (
	NodeOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "nodes",
			Name:      "operations_total",
			Help:      "Node operations by family, operation and result",
		},
		[]string{"family", "operation", "result"},
	)

	NodeOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "nodes",
			Name:      "operation_duration_seconds",
			Help:      "Node operation duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"family", "operation"},
	)

	ActivityEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "activity",
			Name:      "events_total",
			Help:      "Activity notifications by outcome",
		},
		[]string{"outcome"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, route, and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Result names the error kind of err for the result label.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, node.ErrNotFound):
		return "not_found"
	case errors.Is(err, node.ErrCycleDetected):
		return "cycle"
	case errors.Is(err, node.ErrDepthExceeded):
		return "depth"
	case errors.Is(err, node.ErrInvalidArgument):
		return "invalid"
	case errors.Is(err, node.ErrAlreadyExists):
		return "exists"
	case errors.Is(err, node.ErrConflict):
		return "conflict"
	}
	return "error"
}

// ObserveOperation records one finished node operation.
func ObserveOperation(family, operation string, started time.Time, err error) {
	NodeOperations.WithLabelValues(family, operation, Result(err)).Inc()
	NodeOperationDuration.WithLabelValues(family, operation).Observe(time.Since(started).Seconds())
}
