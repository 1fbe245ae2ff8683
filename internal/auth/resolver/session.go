package resolver

import (
	"net/http"
	"time"

	"github.com/ishanbilolikar/pizza42-backend/internal/auth"
	"github.com/ishanbilolikar/pizza42-backend/internal/logger"
	"github.com/ishanbilolikar/pizza42-backend/internal/session"
)

// SessionResolver resolves browser callers from the session cookie.
type SessionResolver struct {
	store  session.Store
	cookie session.CookieOptions
	now    func() time.Time
}

func NewSessionResolver(store session.Store, cookie session.CookieOptions) *SessionResolver {
	return &SessionResolver{store: store, cookie: cookie, now: time.Now}
}

func (s *SessionResolver) Resolve(r *http.Request) (*auth.Identity, error) {
	sess, err := s.Session(r)
	if err != nil {
		return nil, err
	}
	return sess.Identity(), nil
}

// Session loads the live session for r. Missing, unknown and expired
// sessions all report ErrNoCredential.
func (s *SessionResolver) Session(r *http.Request) (*session.Session, error) {
	sessionID := session.ReadCookie(r, s.cookie)
	if sessionID == "" {
		return nil, ErrNoCredential
	}

	sess, err := s.store.Get(r.Context(), sessionID)
	if err != nil {
		logger.Error("session lookup failed", map[string]any{
			"error": err.Error(),
		})
		return nil, ErrNoCredential
	}
	if sess == nil {
		return nil, ErrNoCredential
	}

	if sess.Expired(s.now()) {
		_ = s.store.Delete(r.Context(), sessionID)
		return nil, ErrNoCredential
	}
	return sess, nil
}
