package idp

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ishanbilolikar/pizza42-backend/internal/apperr"
	"github.com/ishanbilolikar/pizza42-backend/internal/auth"
	"github.com/ishanbilolikar/pizza42-backend/internal/idp/idptest"
)

func newManagement(t *testing.T, tp *idptest.Server) *Management {
	t.Helper()
	m, err := NewManagement(ManagementConfig{
		BaseURL:      tp.URL(),
		ClientID:     idptest.MgmtClientID,
		ClientSecret: idptest.MgmtClientSecret,
	})
	require.NoError(t, err)
	return m
}

func newProvider(t *testing.T, tp *idptest.Server) *Provider {
	t.Helper()
	p, err := NewProvider(context.Background(), ProviderConfig{
		Issuer:          tp.Issuer(),
		ClientID:        idptest.ClientID,
		ClientSecret:    idptest.ClientSecret,
		RedirectURL:     "http://localhost:3000/auth/callback",
		Audience:        "https://pizza42.example/api",
		LogoutReturnURL: "http://localhost:3000",
	})
	require.NoError(t, err)
	return p
}

func TestServiceTokenIsFreshEachCall(t *testing.T) {
	tp := idptest.New(t)
	m := newManagement(t, tp)
	ctx := context.Background()

	first, err := m.ServiceToken(ctx)
	require.NoError(t, err)
	second, err := m.ServiceToken(ctx)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, 2, tp.Calls(idptest.CallServiceToken))
}

func TestServiceTokenRejected(t *testing.T) {
	tp := idptest.New(t)
	tp.RejectServiceToken(true)
	m := newManagement(t, tp)

	_, err := m.ServiceToken(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrUpstreamAuth))
	assert.Equal(t, 1, tp.Calls(idptest.CallServiceToken), "no retry")
}

func TestGetAndPatchUserRecord(t *testing.T) {
	tp := idptest.New(t)
	tp.AddUser(idptest.User{Subject: "auth0|abc", Email: "pat@example.com"})
	m := newManagement(t, tp)
	ctx := context.Background()

	token, err := m.ServiceToken(ctx)
	require.NoError(t, err)

	rec, err := m.GetUserRecord(ctx, token, "auth0|abc")
	require.NoError(t, err)
	assert.Equal(t, "auth0|abc", rec.UserID)
	assert.NotNil(t, rec.AppMetadata)
	assert.Empty(t, rec.AppMetadata)

	require.NoError(t, m.PatchUserRecord(ctx, token, "auth0|abc", map[string]any{"totalOrders": 1}))

	rec, err = m.GetUserRecord(ctx, token, "auth0|abc")
	require.NoError(t, err)
	assert.JSONEq(t, `1`, string(rec.AppMetadata["totalOrders"]))
}

func TestGetUserRecordErrors(t *testing.T) {
	tp := idptest.New(t)
	tp.AddUser(idptest.User{Subject: "auth0|abc"})
	m := newManagement(t, tp)
	ctx := context.Background()
	token, err := m.ServiceToken(ctx)
	require.NoError(t, err)

	_, err = m.GetUserRecord(ctx, token, "auth0|missing")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = m.GetUserRecord(ctx, "not-a-service-token", "auth0|abc")
	assert.True(t, errors.Is(err, apperr.ErrUpstreamAuth))

	tp.FailGetUser(http.StatusBadGateway)
	_, err = m.GetUserRecord(ctx, token, "auth0|abc")
	assert.True(t, errors.Is(err, apperr.ErrUpstreamAuth))
	assert.Contains(t, err.Error(), "status 502")
}

func TestPatchUserRecordFailure(t *testing.T) {
	tp := idptest.New(t)
	tp.AddUser(idptest.User{Subject: "auth0|abc"})
	tp.FailPatchUser(http.StatusInternalServerError)
	m := newManagement(t, tp)
	ctx := context.Background()
	token, err := m.ServiceToken(ctx)
	require.NoError(t, err)

	err = m.PatchUserRecord(ctx, token, "auth0|abc", map[string]any{"orders": []string{}})
	assert.True(t, errors.Is(err, apperr.ErrUpstreamWrite))
}

func TestNewManagementValidates(t *testing.T) {
	_, err := NewManagement(ManagementConfig{BaseURL: "https://x"})
	assert.Error(t, err)
}

func TestProviderUserInfo(t *testing.T) {
	tp := idptest.New(t)
	tp.AddUser(idptest.User{Subject: "auth0|u1", Email: "u1@example.com", EmailVerified: true, Name: "Una"})
	p := newProvider(t, tp)
	ctx := context.Background()

	id, err := p.UserInfo(ctx, tp.IssueAccessToken("auth0|u1"))
	require.NoError(t, err)
	assert.Equal(t, &auth.Identity{
		Subject:       "auth0|u1",
		Email:         "u1@example.com",
		EmailVerified: true,
		Name:          "Una",
		Source:        auth.SourceBearer,
	}, id)

	_, err = p.UserInfo(ctx, "bogus")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrUnauthenticated))
}

func TestProviderAuthCodeFlow(t *testing.T) {
	tp := idptest.New(t)
	tp.AddUser(idptest.User{Subject: "auth0|u2", Email: "u2@example.com", EmailVerified: true, Name: "Uli"})
	p := newProvider(t, tp)

	verifier := "a-long-enough-code-verifier-for-the-pkce-flow-0123456789"
	authURL, err := url.Parse(p.AuthCodeURL("state-1", verifier))
	require.NoError(t, err)

	q := authURL.Query()
	sum := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])
	assert.Equal(t, tp.URL()+"/authorize", authURL.Scheme+"://"+authURL.Host+authURL.Path)
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, challenge, q.Get("code_challenge"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Equal(t, "https://pizza42.example/api", q.Get("audience"))
	assert.Equal(t, "openid profile email", q.Get("scope"))

	code := tp.IssueCode("auth0|u2", challenge)
	res, err := p.ExchangeCode(context.Background(), code, verifier)
	require.NoError(t, err)

	assert.Equal(t, "auth0|u2", res.Identity.Subject)
	assert.True(t, res.Identity.EmailVerified)
	assert.Equal(t, "Uli", res.Identity.Name)
	assert.Equal(t, "u2@example.com", res.Claims["email"])
	assert.NotEmpty(t, res.IDToken)
	assert.NotEmpty(t, res.AccessToken)

	_, err = p.ExchangeCode(context.Background(), code, verifier)
	assert.Error(t, err, "codes are single use")
}

func TestProviderExchangeRejectsWrongVerifier(t *testing.T) {
	tp := idptest.New(t)
	tp.AddUser(idptest.User{Subject: "auth0|u3"})
	p := newProvider(t, tp)

	sum := sha256.Sum256([]byte("right-verifier"))
	code := tp.IssueCode("auth0|u3", base64.RawURLEncoding.EncodeToString(sum[:]))

	_, err := p.ExchangeCode(context.Background(), code, "wrong-verifier")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrUpstreamAuth))
}

func TestProviderLogoutURL(t *testing.T) {
	tp := idptest.New(t)
	p := newProvider(t, tp)

	u, err := url.Parse(p.LogoutURL())
	require.NoError(t, err)
	assert.Equal(t, "/v2/logout", u.Path)
	assert.Equal(t, idptest.ClientID, u.Query().Get("client_id"))
	assert.Equal(t, "http://localhost:3000", u.Query().Get("returnTo"))
}

func TestUserRecordDecodesNullMetadata(t *testing.T) {
	var rec UserRecord
	require.NoError(t, json.Unmarshal([]byte(`{"user_id":"x","app_metadata":null}`), &rec))
	assert.Nil(t, rec.AppMetadata)
}
