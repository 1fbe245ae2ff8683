package app

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"

	authhandler "github.com/ishanbilolikar/pizza42-backend/internal/auth/handler"
	"github.com/ishanbilolikar/pizza42-backend/internal/auth/resolver"
	"github.com/ishanbilolikar/pizza42-backend/internal/config"
	"github.com/ishanbilolikar/pizza42-backend/internal/idp"
	"github.com/ishanbilolikar/pizza42-backend/internal/logger"
	"github.com/ishanbilolikar/pizza42-backend/internal/middleware"
	"github.com/ishanbilolikar/pizza42-backend/internal/order"
	orderhandler "github.com/ishanbilolikar/pizza42-backend/internal/order/handler"
	"github.com/ishanbilolikar/pizza42-backend/internal/session"
	"github.com/ishanbilolikar/pizza42-backend/internal/web"
)

const (
	msgNotAuthenticated = "Not authenticated"
	msgMissingBearer    = "Missing or invalid authorization header"
)

// setupHTTP wires the identity provider, sessions and handlers into a router.
func setupHTTP(ctx context.Context, cfg config.Config, rdb goredis.Cmdable) (*gin.Engine, error) {
	// ----------------------------
	// Dependencies
	// ----------------------------

	httpClient := idp.NewHTTPClient()

	provider, err := idp.NewProvider(ctx, idp.ProviderConfig{
		Issuer:          cfg.IssuerURL(),
		ClientID:        cfg.ClientID,
		ClientSecret:    cfg.ClientSecret,
		RedirectURL:     cfg.CallbackURL(),
		Audience:        cfg.Audience,
		Scopes:          strings.Fields(cfg.Scope),
		LogoutReturnURL: cfg.AppBaseURL,
		HTTPClient:      httpClient,
	})
	if err != nil {
		return nil, err
	}

	mgmt, err := idp.NewManagement(idp.ManagementConfig{
		BaseURL:      cfg.ManagementURL(),
		ClientID:     cfg.MgmtClientID,
		ClientSecret: cfg.MgmtClientSecret,
		HTTPClient:   httpClient,
	})
	if err != nil {
		return nil, err
	}

	cookie := session.DefaultCookieOptions(cfg.CookieSecure)
	sessionStore := session.NewRedisStore(rdb)

	bearer := resolver.NewBearerResolver(provider)
	sessions := resolver.NewSessionResolver(sessionStore, cookie)

	authHandler := authhandler.NewHandler(provider, sessionStore, sessions, authhandler.Options{
		TxnSecret:  cfg.SessionSecret,
		Cookie:     cookie,
		SessionTTL: cfg.SessionTTL,
	})

	orderHandler := orderhandler.NewHandler(
		order.NewService(mgmt),
		resolver.NewChain(msgNotAuthenticated, bearer, sessions),
		resolver.NewChain(msgMissingBearer, bearer),
		cfg.AllowedOrigins,
	)

	frontendURL := ""
	if len(cfg.AllowedOrigins) > 0 {
		frontendURL = cfg.AllowedOrigins[0]
	}
	webHandler := web.NewHandler(sessions, cfg.APIBasePath, frontendURL)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(middleware.Recovery(), middleware.RequestLog())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	webHandler.RegisterRoutes(router)

	api := router.Group(cfg.APIBasePath)
	authHandler.RegisterRoutes(router, api)
	orderHandler.RegisterRoutes(api)

	for _, route := range router.Routes() {
		logger.Debug("route registered", map[string]any{
			"method": route.Method,
			"path":   route.Path,
		})
	}

	return router, nil
}
