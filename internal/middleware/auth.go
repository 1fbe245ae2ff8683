package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/ishanbilolikar/pizza42-backend/internal/apperr"
	"github.com/ishanbilolikar/pizza42-backend/internal/auth"
	"github.com/ishanbilolikar/pizza42-backend/internal/auth/resolver"
	"github.com/ishanbilolikar/pizza42-backend/internal/logger"
)

// unexported, collision-proof context key
type identityContextKeyType struct{}

var identityKey = identityContextKeyType{}

// IdentityFromContext extracts the authenticated caller from context.
func IdentityFromContext(ctx context.Context) (*auth.Identity, bool) {
	id, ok := ctx.Value(identityKey).(*auth.Identity)
	return id, ok && id != nil
}

// WithIdentity returns ctx carrying id.
func WithIdentity(ctx context.Context, id *auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// RequireCaller resolves the caller with res and aborts with 401 when that
// fails. Handlers downstream read the caller with IdentityFromContext.
func RequireCaller(res resolver.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := res.Resolve(c.Request)
		if err != nil {
			status, msg := apperr.Status(err)
			logger.Warn("caller rejected", map[string]any{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})
			c.AbortWithStatusJSON(status, gin.H{"error": msg})
			return
		}

		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}
