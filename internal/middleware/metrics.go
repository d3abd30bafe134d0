package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/biblioteca-api/internal/service"
)

// UnmatchedRouteLabel labels requests no route matched. Raw URLs carry loan and student ids and would
// give every request its own series.
const UnmatchedRouteLabel = "unmatched"

var unobservedRoutes = map[string]struct{}{
	"/health":  {},
	"/ready":   {},
	"/metrics": {},
}

// Metrics records request count and latency per method, route template and status. Health, readiness and
// scrape routes are skipped.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		route := c.FullPath()
		if _, skip := unobservedRoutes[route]; skip {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		if route == "" {
			route = UnmatchedRouteLabel
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
