package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const corsAllowHeaders = "Content-Type, Authorization"

// CORS answers for an allow-list of frontend origins. Unknown origins get the
// first allow-listed origin back, so browsers refuse the response. Preflight
// requests are answered here with 200 and an empty JSON object.
func CORS(allowedOrigins []string, methods ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	fallback := ""
	if len(allowedOrigins) > 0 {
		fallback = allowedOrigins[0]
	}
	allowMethods := strings.Join(append(methods, http.MethodOptions), ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if _, ok := allowed[origin]; !ok {
			origin = fallback
		}

		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", allowMethods)
		h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
		h.Add("Vary", "Origin")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatusJSON(http.StatusOK, gin.H{})
			return
		}
		c.Next()
	}
}
