// Package metrics provides Prometheus instrumentation for the fraud service.
package metrics

import (
	"context"
	"database/sql"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "forsakenscan",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "forsakenscan",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// EvaluationsTotal counts engine evaluations by outcome.
	EvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "forsakenscan",
			Name:      "evaluations_total",
			Help:      "Total transaction evaluations by verdict outcome.",
		},
		[]string{"outcome"},
	)

	// EvaluationDuration observes full-pipeline evaluation latency.
	EvaluationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "forsakenscan",
		Name:      "evaluation_duration_seconds",
		Help:      "Transaction evaluation duration in seconds.",
		Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
	})

	// RuleTriggeredTotal counts rule hits by rule name.
	RuleTriggeredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "forsakenscan",
			Name:      "rule_triggered_total",
			Help:      "Total rule triggers by rule name.",
		},
		[]string{"rule"},
	)

	// RuleFaultsTotal counts isolated rule faults by rule name.
	RuleFaultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "forsakenscan",
			Name:      "rule_faults_total",
			Help:      "Total rule evaluations degraded to not-triggered by a fault.",
		},
		[]string{"rule"},
	)

	// LimitBreachesTotal counts shift-limit breach attempts by shift.
	LimitBreachesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "forsakenscan",
			Name:      "limit_breaches_total",
			Help:      "Total shift-limit breach attempts by shift.",
		},
		[]string{"shift"},
	)

	// FraudsRegisteredTotal counts fraud records written.
	FraudsRegisteredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "forsakenscan",
		Name:      "frauds_registered_total",
		Help:      "Total fraud records registered.",
	})

	// ActiveWebSocketClients tracks connected alert-stream clients.
	ActiveWebSocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "forsakenscan",
			Name:      "active_websocket_clients",
			Help:      "Number of currently connected WebSocket clients.",
		},
	)

	// DBOpenConnections tracks open database connections.
	DBOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "forsakenscan", Name: "db_open_connections",
		Help: "Number of open database connections.",
	})
	// DBIdleConnections tracks idle database connections.
	DBIdleConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "forsakenscan", Name: "db_idle_connections",
		Help: "Number of idle database connections.",
	})
	// DBInUseConnections tracks in-use database connections.
	DBInUseConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "forsakenscan", Name: "db_in_use_connections",
		Help: "Number of in-use database connections.",
	})
	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "forsakenscan", Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		EvaluationsTotal,
		EvaluationDuration,
		RuleTriggeredTotal,
		RuleFaultsTotal,
		LimitBreachesTotal,
		FraudsRegisteredTotal,
		ActiveWebSocketClients,
		DBOpenConnections,
		DBIdleConnections,
		DBInUseConnections,
		GoroutineCount,
	)
}

// StartDBStatsCollector periodically samples sql.DBStats and runtime goroutine
// count into Prometheus gauges. Call in a goroutine; exits when ctx is done.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			DBOpenConnections.Set(float64(stats.OpenConnections))
			DBIdleConnections.Set(float64(stats.Idle))
			DBInUseConnections.Set(float64(stats.InUse))
			GoroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // Uses route pattern, not actual path (avoids cardinality explosion)
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
