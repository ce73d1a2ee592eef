// Package http provides the HTTP API for archd.
package http

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP-level Prometheus collectors.
type Metrics struct {
	requestsTotal *prometheus.CounterVec
	requestDur    *prometheus.HistogramVec
	analyses      prometheus.Counter
	recommends    prometheus.Counter
}

// NewMetrics registers the collectors with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "archd_http_requests_total",
			Help: "Total HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),
		requestDur: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "archd_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds by method and path.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "path"}),
		analyses: factory.NewCounter(prometheus.CounterOpts{
			Name: "archd_analyses_total",
			Help: "Total requirements analyses performed.",
		}),
		recommends: factory.NewCounter(prometheus.CounterOpts{
			Name: "archd_recommendations_total",
			Help: "Total architecture recommendations computed.",
		}),
	}
}

// Middleware records request count and duration per route.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}
			m.requestsTotal.WithLabelValues(
				c.Request().Method,
				path,
				strconv.Itoa(c.Response().Status),
			).Inc()
			m.requestDur.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
