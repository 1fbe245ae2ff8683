package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"golang.org/x/oauth2"

	"github.com/ishanbilolikar/pizza42-backend/internal/auth/resolver"
	"github.com/ishanbilolikar/pizza42-backend/internal/idp"
	"github.com/ishanbilolikar/pizza42-backend/internal/logger"
	"github.com/ishanbilolikar/pizza42-backend/internal/session"
)

// LoginProvider is the slice of the identity provider the login flow needs.
type LoginProvider interface {
	AuthCodeURL(state, codeVerifier string) string
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*idp.LoginResult, error)
	LogoutURL() string
}

type Options struct {
	// TxnSecret signs the short-lived login transaction cookie.
	TxnSecret  string
	Cookie     session.CookieOptions
	SessionTTL time.Duration
}

type Handler struct {
	provider     LoginProvider
	sessionStore session.Store
	resolver     *resolver.SessionResolver
	txn          sessions.Store
	cookie       session.CookieOptions
	ttl          time.Duration
	now          func() time.Time
}

func NewHandler(
	provider LoginProvider,
	sessionStore session.Store,
	resolver *resolver.SessionResolver,
	opts Options,
) *Handler {
	return &Handler{
		provider:     provider,
		sessionStore: sessionStore,
		resolver:     resolver,
		txn:          newTxnStore(opts.TxnSecret, opts.Cookie.Secure),
		cookie:       opts.Cookie,
		ttl:          opts.SessionTTL,
		now:          time.Now,
	}
}

// RegisterRoutes mounts the browser login flow on r and the session-backed
// API routes on api.
func (h *Handler) RegisterRoutes(r gin.IRouter, api gin.IRouter) {
	r.GET("/auth/login", h.login)
	r.GET("/auth/callback", h.callback)
	r.GET("/auth/logout", h.logout)
	r.GET("/auth/profile", h.profile)

	api.GET("/tokens", h.tokens)
}

func (h *Handler) login(c *gin.Context) {
	state, err := session.GenerateState()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start login"})
		return
	}
	verifier := oauth2.GenerateVerifier()

	txn := transaction{
		State:    state,
		Verifier: verifier,
		ReturnTo: safeReturnTo(c.Query("returnTo")),
	}
	if err := saveTxn(h.txn, c.Writer, c.Request, txn); err != nil {
		logger.Error("login transaction save failed", map[string]any{
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start login"})
		return
	}

	c.Redirect(http.StatusFound, h.provider.AuthCodeURL(state, verifier))
}

func (h *Handler) callback(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		logger.Warn("oidc callback returned error", map[string]any{
			"error": errParam,
			"desc":  c.Query("error_description"),
		})
		clearTxn(h.txn, c.Writer, c.Request)
		c.Redirect(http.StatusFound, "/")
		return
	}

	txn, ok := loadTxn(h.txn, c.Request)
	if !ok || c.Query("state") == "" || c.Query("state") != txn.State {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid state"})
		return
	}

	code := c.Query("code")
	if code == "" {
		logger.Error("oidc callback missing code and error", nil)
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}

	result, err := h.provider.ExchangeCode(c.Request.Context(), code, txn.Verifier)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
		return
	}

	sessionID, err := session.GenerateID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	now := h.now()
	expiresAt := now.Add(h.ttl)
	sess := session.Session{
		SessionID:     sessionID,
		Subject:       result.Identity.Subject,
		Email:         result.Identity.Email,
		EmailVerified: result.Identity.EmailVerified,
		Name:          result.Identity.Name,
		IDTokenClaims: result.Claims,
		IDToken:       result.IDToken,
		AccessToken:   result.AccessToken,
		CreatedAt:     now,
		ExpiresAt:     expiresAt,
	}
	if err := h.sessionStore.Create(c.Request.Context(), sess); err != nil {
		logger.Error("session persist failed", map[string]any{
			"sub":   sess.Subject,
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist session"})
		return
	}

	session.SetCookie(c.Writer, sessionID, expiresAt, h.cookie)
	clearTxn(h.txn, c.Writer, c.Request)

	logger.Info("login succeeded", map[string]any{
		"sub": sess.Subject,
		"ip":  c.ClientIP(),
	})

	c.Redirect(http.StatusFound, txn.ReturnTo)
}

func (h *Handler) logout(c *gin.Context) {
	if sessionID := session.ReadCookie(c.Request, h.cookie); sessionID != "" {
		if err := h.sessionStore.Delete(c.Request.Context(), sessionID); err != nil {
			logger.Warn("session delete failed", map[string]any{
				"error": err.Error(),
			})
		}
	}

	session.ClearCookie(c.Writer, h.cookie)
	c.Redirect(http.StatusFound, h.provider.LogoutURL())
}
