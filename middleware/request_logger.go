package middleware

import (
	"time"

	"compliancedesk-backend/logger"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs each request with its status and latency
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		kv := []interface{}{
			"status", status,
			"method", c.Request.Method,
			"path", path,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"request_id", GetRequestID(c),
		}
		if id, ok := UserID(c); ok {
			kv = append(kv, "user_id", id)
		}

		switch {
		case status >= 500:
			log.Error("http.request", kv...)
		case status >= 400:
			log.Warn("http.request", kv...)
		default:
			log.Info("http.request", kv...)
		}
	}
}
