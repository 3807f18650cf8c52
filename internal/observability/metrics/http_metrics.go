package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics records inbound request latency per route.
type HTTPMetrics struct {
	requests *prometheus.HistogramVec
}

func NewHTTPMetrics(cfg Config) *HTTPMetrics {
	return newHTTPMetrics(prometheus.DefaultRegisterer, cfg)
}

func newHTTPMetrics(registerer prometheus.Registerer, cfg Config) *HTTPMetrics {
	requests := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "horecaalert_http_request_duration_seconds",
		Help:        "HTTP request latency by route and status code.",
		Buckets:     prometheus.DefBuckets,
		ConstLabels: constLabels(cfg),
	}, []string{"method", "endpoint", "status_code"})
	registerer.MustRegister(requests)
	return &HTTPMetrics{requests: requests}
}

// GinMiddleware observes every request that matched a route.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}
