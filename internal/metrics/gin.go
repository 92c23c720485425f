package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "resumematch"

// unmatchedRoute labels requests no route matched so scanners cannot blow up label cardinality.
const unmatchedRoute = "unmatched"

var (
	registerOnce sync.Once

	pageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Page and API latency in seconds, by route.",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "route", "status"},
	)

	uploadSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_body_bytes",
			Help:      "Declared request body size of POST routes.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		},
		[]string{"route"},
	)

	pagesInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Requests currently being served, probes excluded.",
		},
	)
)

// probeRoutes are scraped constantly and would drown the page numbers.
var probeRoutes = map[string]bool{"/health": true, "/ready": true, "/metrics": true}

// GinMiddleware records latency per route, in-flight pages and upload sizes.
func GinMiddleware() gin.HandlerFunc {
	registerOnce.Do(func() {
		prometheus.MustRegister(pageDuration, uploadSize, pagesInFlight)
	})

	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		if probeRoutes[route] {
			c.Next()
			return
		}

		start := time.Now()
		pagesInFlight.Inc()
		defer pagesInFlight.Dec()

		if c.Request.Method == http.MethodPost && c.Request.ContentLength > 0 {
			uploadSize.WithLabelValues(route).Observe(float64(c.Request.ContentLength))
		}

		c.Next()

		pageDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
