// internal/middleware/logging_middleware.go
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"light-controller-service/internal/utils"
)

// LoggingMiddleware logs every request once it has been served. Requests to
// controller routes carry the instance id.
func LoggingMiddleware(logger *utils.ServiceLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		logger.LogAPIRequest(utils.APIRequest{
			Method:     c.Request.Method,
			Path:       path,
			RequestID:  c.GetString(requestIDKey),
			InstanceID: c.Param("instance_id"),
			ClientIP:   c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
			Status:     c.Writer.Status(),
			Duration:   time.Since(start),
		})
	}
}
