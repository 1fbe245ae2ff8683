package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ishanbilolikar/pizza42-backend/internal/logger"
)

// RequestLog logs one line per request.
func RequestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]any{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"ip":         c.ClientIP(),
		}
		if id, ok := IdentityFromContext(c.Request.Context()); ok {
			fields["sub"] = id.Subject
			fields["auth"] = string(id.Source)
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("request", fields)
		default:
			logger.Info("request", fields)
		}
	}
}

// Recovery turns a panic into 500 {"error": ...} and logs it.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		msg := fmt.Sprint(recovered)
		if err, ok := recovered.(error); ok {
			msg = err.Error()
		}
		logger.Error("panic recovered", map[string]any{
			"path":  c.Request.URL.Path,
			"error": msg,
		})
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": msg})
	})
}
