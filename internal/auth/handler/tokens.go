package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const msgNotAuthenticated = "Not authenticated"

// profile returns the ID token claims of the logged-in user.
func (h *Handler) profile(c *gin.Context) {
	sess, err := h.resolver.Session(c.Request)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": msgNotAuthenticated})
		return
	}

	claims := sess.IDTokenClaims
	if claims == nil {
		claims = map[string]any{
			"sub":            sess.Subject,
			"email":          sess.Email,
			"email_verified": sess.EmailVerified,
			"name":           sess.Name,
		}
	}
	c.JSON(http.StatusOK, claims)
}

// tokens exposes the session's decoded ID token and raw access token.
func (h *Handler) tokens(c *gin.Context) {
	sess, err := h.resolver.Session(c.Request)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": msgNotAuthenticated})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"idToken":     sess.IDTokenClaims,
		"accessToken": sess.AccessToken,
	})
}
