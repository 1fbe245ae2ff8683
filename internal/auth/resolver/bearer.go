package resolver

import (
	"context"
	"net/http"
	"strings"

	"github.com/ishanbilolikar/pizza42-backend/internal/apperr"
	"github.com/ishanbilolikar/pizza42-backend/internal/auth"
)

const bearerPrefix = "Bearer "

// TokenVerifier checks an access token with the identity provider.
type TokenVerifier interface {
	UserInfo(ctx context.Context, accessToken string) (*auth.Identity, error)
}

// BearerResolver resolves callers presenting "Authorization: Bearer <token>".
type BearerResolver struct {
	verifier TokenVerifier
}

func NewBearerResolver(v TokenVerifier) *BearerResolver {
	return &BearerResolver{verifier: v}
}

func (b *BearerResolver) Resolve(r *http.Request) (*auth.Identity, error) {
	token, ok := BearerToken(r)
	if !ok {
		return nil, ErrNoCredential
	}

	id, err := b.verifier.UserInfo(r.Context(), token)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnauthenticated, "Invalid token", err)
	}
	id.Source = auth.SourceBearer
	return id, nil
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(h, bearerPrefix))
	return token, token != ""
}
