package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"stablepay.backend/pkg/logger"
)

// LoggerMiddleware logs each request through the structured logger. The
// request ID is picked up from the context set by RequestIDMiddleware.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		logger.LogRequest(c.Request.Context(), c.Request.Method, path, c.Writer.Status(), time.Since(start), c.ClientIP())
	}
}
