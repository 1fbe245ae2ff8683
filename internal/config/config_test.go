package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("APP_BASE_URL", "http://localhost:3000")
	t.Setenv("AUTH0_DOMAIN", "pizza42.us.auth0.com")
	t.Setenv("AUTH0_CLIENT_ID", "client")
	t.Setenv("AUTH0_CLIENT_SECRET", "secret")
	t.Setenv("MGMT_CLIENT_ID", "mgmt-client")
	t.Setenv("MGMT_CLIENT_SECRET", "mgmt-secret")
	t.Setenv("AUTH0_SECRET", "0123456789abcdef0123456789abcdef")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.AppPort)
	assert.Equal(t, "openid profile email", cfg.Scope)
	assert.Equal(t, "pizza42.us.auth0.com", cfg.MgmtDomain, "management domain falls back to the login domain")
	assert.Equal(t, []string{"http://localhost:5173", "https://pizza42-frontend.vercel.app"}, cfg.AllowedOrigins)
	assert.Equal(t, "/api", cfg.APIBasePath)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.CookieSecure)

	assert.Equal(t, "https://pizza42.us.auth0.com/", cfg.IssuerURL())
	assert.Equal(t, "https://pizza42.us.auth0.com", cfg.ManagementURL())
	assert.Equal(t, "http://localhost:3000/auth/callback", cfg.CallbackURL())
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("AUTH0_MGMT_DOMAIN", "http://127.0.0.1:9999/")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("API_BASE_PATH", "/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:9999", cfg.ManagementURL())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "", cfg.APIBasePath)
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Config{
		SessionSecret:  "short",
		AllowedOrigins: []string{"http://localhost:5173"},
		SessionTTL:     time.Hour,
	}

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"APP_BASE_URL is required",
		"AUTH0_DOMAIN is required",
		"MGMT_CLIENT_SECRET is required",
		"AUTH0_SECRET must be at least 32 characters",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "https://tenant.auth0.com", BaseURL("tenant.auth0.com"))
	assert.Equal(t, "https://tenant.auth0.com", BaseURL("tenant.auth0.com/"))
	assert.Equal(t, "http://127.0.0.1:8080", BaseURL("http://127.0.0.1:8080"))
}
