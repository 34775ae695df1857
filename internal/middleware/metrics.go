package middleware

import (
	"strconv"
	"time"

	"lasmarias/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics records request latency by route template, so /v1/ventas/:id is
// one series no matter how many sales exist.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "desconocida"
		}
		metrics.HTTPDuracion.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
