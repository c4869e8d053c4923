package middleware

import (
	"time"

	"quotaflow-go/internal/monitoring"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// unmatchedRoute labels requests gin could not route so the path label
// stays bounded.
const unmatchedRoute = "unmatched"

// Metrics records per-route request counts, latency and in-flight requests.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		monitoring.HTTPInFlight.Inc()
		defer monitoring.HTTPInFlight.Dec()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		method := c.Request.Method
		monitoring.HTTPRequestsTotal.WithLabelValues(method, route, monitoring.StatusClass(c.Writer.Status())).Inc()
		monitoring.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// MetricsHandler serves the default registry in Prometheus or OpenMetrics
// format. Gathering errors are reported but do not fail the scrape.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.InstrumentMetricHandler(prometheus.DefaultRegisterer,
		promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
			ErrorHandling:     promhttp.ContinueOnError,
			EnableOpenMetrics: true,
		}))
	return gin.WrapH(h)
}
