package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ishanbilolikar/pizza42-backend/internal/auth"
	"github.com/ishanbilolikar/pizza42-backend/internal/logger"
	"github.com/ishanbilolikar/pizza42-backend/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

var homeTemplate = template.Must(template.ParseFS(templateFS, "templates/home.html"))

// SessionLookup finds the logged-in browser session for a request.
type SessionLookup interface {
	Session(r *http.Request) (*session.Session, error)
}

type Handler struct {
	sessions    SessionLookup
	apiBasePath string
	frontendURL string
}

func NewHandler(sessions SessionLookup, apiBasePath, frontendURL string) *Handler {
	if apiBasePath == "" {
		apiBasePath = "/"
	}
	return &Handler{sessions: sessions, apiBasePath: apiBasePath, frontendURL: frontendURL}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/", h.home)
}

type homeData struct {
	User        *auth.Identity
	IDTokenJSON string
	AccessToken string
	APIBasePath string
	FrontendURL string
}

func (h *Handler) home(c *gin.Context) {
	data := homeData{
		APIBasePath: h.apiBasePath,
		FrontendURL: h.frontendURL,
	}

	if sess, err := h.sessions.Session(c.Request); err == nil {
		data.User = sess.Identity()
		data.AccessToken = sess.AccessToken
		if b, err := json.MarshalIndent(sess.IDTokenClaims, "", "  "); err == nil {
			data.IDTokenJSON = string(b)
		}
	}

	var buf bytes.Buffer
	if err := homeTemplate.Execute(&buf, data); err != nil {
		logger.Error("home page render failed", map[string]any{
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render page"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
