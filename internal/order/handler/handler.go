package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ishanbilolikar/pizza42-backend/internal/apperr"
	"github.com/ishanbilolikar/pizza42-backend/internal/auth"
	"github.com/ishanbilolikar/pizza42-backend/internal/auth/resolver"
	"github.com/ishanbilolikar/pizza42-backend/internal/logger"
	"github.com/ishanbilolikar/pizza42-backend/internal/middleware"
	"github.com/ishanbilolikar/pizza42-backend/internal/order"
)

// Orders is the order service as seen by the HTTP layer.
type Orders interface {
	Authorize(caller *auth.Identity) error
	Submit(ctx context.Context, caller *auth.Identity, p order.Payload) (*order.Confirmation, error)
	List(ctx context.Context, subject string) ([]order.Record, error)
}

type Handler struct {
	orders Orders

	// submitter accepts bearer or session callers, reader bearer only.
	submitter resolver.Resolver
	reader    resolver.Resolver

	origins []string
}

func NewHandler(orders Orders, submitter, reader resolver.Resolver, origins []string) *Handler {
	return &Handler{
		orders:    orders,
		submitter: submitter,
		reader:    reader,
		origins:   origins,
	}
}

func (h *Handler) RegisterRoutes(api gin.IRouter) {
	submitCORS := middleware.CORS(h.origins, http.MethodPost)
	api.OPTIONS("/orders", submitCORS)
	api.POST("/orders", submitCORS, middleware.RequireCaller(h.submitter), h.submit)

	listCORS := middleware.CORS(h.origins, http.MethodGet)
	api.OPTIONS("/user-orders", listCORS)
	api.GET("/user-orders", listCORS, middleware.RequireCaller(h.reader), h.list)
}

func (h *Handler) submit(c *gin.Context) {
	caller, _ := middleware.IdentityFromContext(c.Request.Context())

	// The email rule applies before the body is looked at.
	if err := h.orders.Authorize(caller); err != nil {
		writeError(c, err)
		return
	}

	var payload order.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": order.MsgMissingFields})
		return
	}

	conf, err := h.orders.Submit(c.Request.Context(), caller, payload)
	if err != nil {
		writeError(c, err)
		return
	}

	logger.Info("order placed", map[string]any{
		"sub":      caller.Subject,
		"auth":     string(caller.Source),
		"order_id": conf.Record.OrderID,
		"pizza_id": conf.Record.PizzaID,
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"orderId": conf.Record.OrderID,
		"message": conf.Message,
	})
}

func (h *Handler) list(c *gin.Context) {
	caller, _ := middleware.IdentityFromContext(c.Request.Context())

	orders, err := h.orders.List(c.Request.Context(), caller.Subject)
	if err != nil {
		logger.Error("order history fetch failed", map[string]any{
			"sub":   caller.Subject,
			"error": err.Error(),
		})
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func writeError(c *gin.Context, err error) {
	status, msg := apperr.Status(err)
	body := gin.H{"error": msg}
	if apperr.CodeOf(err) == apperr.CodeEmailNotVerified {
		body["emailVerified"] = false
	}
	c.JSON(status, body)
}
