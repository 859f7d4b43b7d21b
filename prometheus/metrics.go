package prometheus

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"furniture-service/pkg/config"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics
var (
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// StatusCategoryCounter counts responses by 2xx, 4xx and 5xx
	StatusCategoryCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_status_category_total",
			Help: "Total number of responses by status category",
		},
		[]string{"category"},
	)
)

// Domain metrics
var (
	AuthOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_operations_total",
			Help: "Total number of authentication operations",
		},
		[]string{"operation"}, // login, register, create_admin, profile_update
	)

	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"},
	)

	ProductOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "product_operations_total",
			Help: "Total number of product operations",
		},
		[]string{"operation"},
	)

	DesignOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "room_design_operations_total",
			Help: "Total number of room design operations",
		},
		[]string{"operation"},
	)

	UploadBytesCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upload_bytes_total",
			Help: "Total bytes of uploaded media",
		},
		[]string{"kind"}, // images, models
	)

	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// Realtime metrics
var (
	RealtimeConnectionsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_connections",
			Help: "Number of open websocket connections",
		},
	)

	RealtimeEventCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_events_total",
			Help: "Total number of realtime events by name and direction",
		},
		[]string{"event", "direction"}, // direction: in, out
	)

	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "info",
			Help: "Information about the service",
		},
		[]string{"service", "version"},
	)
)

var registerOnce sync.Once

// InitMetrics registers every collector under the configured prefix. Only
// the first call registers; later calls are no-ops.
func InitMetrics(cfg *config.Config) {
	registerOnce.Do(func() {
		reg := prometheus.DefaultRegisterer
		if cfg.Metrics.Prefix != "" {
			reg = prometheus.WrapRegistererWithPrefix(cfg.Metrics.Prefix+"_", reg)
		}

		reg.MustRegister(
			HTTPRequestCounter,
			RequestDuration,
			StatusCategoryCounter,
			AuthOperationCounter,
			AuthErrorCounter,
			ProductOperationCounter,
			DesignOperationCounter,
			UploadBytesCounter,
			DBOperationDuration,
			RealtimeConnectionsGauge,
			RealtimeEventCounter,
			InfoGauge,
		)

		InfoGauge.With(prometheus.Labels{"service": cfg.ServiceName, "version": "1.0.0"}).Set(1)
	})
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			duration := time.Since(start).Seconds()
			statusCode := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok && !c.Response().Committed {
				statusCode = he.Code
			}
			status := strconv.Itoa(statusCode)
			endpoint := c.Path()
			method := c.Request().Method

			RequestDuration.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Observe(duration)

			HTTPRequestCounter.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Inc()

			if category := statusCategory(statusCode); category != "" {
				StatusCategoryCounter.WithLabelValues(category).Inc()
			}

			return err
		}
	}
}

func statusCategory(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	}
	return ""
}

// RecordAuthOperation records an authentication operation by type
func RecordAuthOperation(operation string) {
	AuthOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordAuthError records an authentication error by type
func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordProductOperation records a product operation such as create or delete
func RecordProductOperation(operation string) {
	ProductOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordDesignOperation records a room design operation
func RecordDesignOperation(operation string) {
	DesignOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordUpload adds stored media bytes for a kind of file
func RecordUpload(kind string, size int64) {
	UploadBytesCounter.With(prometheus.Labels{"kind": kind}).Add(float64(size))
}

// RecordRealtimeEvent counts an inbound or outbound websocket event
func RecordRealtimeEvent(event, direction string) {
	RealtimeEventCounter.With(prometheus.Labels{"event": event, "direction": direction}).Inc()
}
