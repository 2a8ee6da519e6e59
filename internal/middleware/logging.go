package middleware

import (
	"time" // Request latency

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Structured logging
)

// RequestLogger logs every request with its status and latency
func RequestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now() // Start of the request
		c.Next()            // Run the handlers
		entry := log.WithFields(logrus.Fields{
			"method":     c.Request.Method,                 // HTTP method
			"path":       c.FullPath(),                     // Route pattern, not the raw URL
			"status":     c.Writer.Status(),                // Response status
			"latency_ms": time.Since(start).Milliseconds(), // Time spent
			"client_ip":  c.ClientIP(),                     // Caller address
		})
		// Server errors are logged at error level, everything else at info
		if c.Writer.Status() >= 500 {
			entry.Error("Request failed")
			return
		}
		entry.Info("Request handled")
	}
}
