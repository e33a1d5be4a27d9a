package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LabsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labstack_labs_created_total",
			Help: "Total labs created",
		},
		[]string{"lab_type"},
	)

	LabsReadyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labstack_labs_ready_total",
			Help: "Total labs observed reachable and marked ready",
		},
		[]string{"lab_type"},
	)

	LabsTerminatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "labstack_labs_terminated_total",
			Help: "Total labs terminated on request",
		},
	)

	ProvisionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "labstack_provision_duration_seconds",
			Help:    "Time to launch a lab VM",
			Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
		},
		[]string{"lab_type"},
	)

	ComputeErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labstack_compute_errors_total",
			Help: "Total compute API failures",
		},
		[]string{"operation"},
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labstack_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "labstack_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

func init() {
	prometheus.MustRegister(
		LabsCreatedTotal,
		LabsReadyTotal,
		LabsTerminatedTotal,
		ProvisionDuration,
		ComputeErrorsTotal,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	)
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// EchoMiddleware returns Echo middleware that instruments HTTP requests.
func EchoMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			HTTPRequestDuration.WithLabelValues(
				c.Request().Method,
				c.Path(),
			).Observe(time.Since(start).Seconds())

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}

			HTTPRequestsTotal.WithLabelValues(
				c.Request().Method,
				c.Path(),
				strconv.Itoa(status),
			).Inc()

			return err
		}
	}
}
