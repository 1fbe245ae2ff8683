package session

import (
	"context"
	"time"

	"github.com/ishanbilolikar/pizza42-backend/internal/auth"
)

// Session is the server-side state established by a completed login.
// It keeps the tokens the provider issued so the UI can show them.
type Session struct {
	SessionID     string         `json:"session_id"`
	Subject       string         `json:"sub"`
	Email         string         `json:"email"`
	EmailVerified bool           `json:"email_verified"`
	Name          string         `json:"name"`
	IDTokenClaims map[string]any `json:"id_token_claims"`
	IDToken       string         `json:"id_token"`
	AccessToken   string         `json:"access_token"`
	CreatedAt     time.Time      `json:"created_at"`
	ExpiresAt     time.Time      `json:"expires_at"`
}

// Identity normalizes the session into the caller shape used by handlers.
func (s Session) Identity() *auth.Identity {
	return &auth.Identity{
		Subject:       s.Subject,
		Email:         s.Email,
		EmailVerified: s.EmailVerified,
		Name:          s.Name,
		Source:        auth.SourceSession,
	}
}

// Expired reports whether the session is past its absolute expiry.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store defines how sessions are stored and retrieved.
// Get returns (nil, nil) when the session does not exist.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
}
