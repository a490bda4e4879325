package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"study-tracker/backend/pkg/metrics"
)

// Metrics Prometheus 请求指标中间件；按路由模板聚合，未匹配的路由归为 unmatched
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveRequest(route, c.Writer.Status(), time.Since(start).Seconds())
	}
}
