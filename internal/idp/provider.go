package idp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/ishanbilolikar/pizza42-backend/internal/apperr"
	"github.com/ishanbilolikar/pizza42-backend/internal/auth"
	"github.com/ishanbilolikar/pizza42-backend/internal/logger"
)

// ProviderConfig configures the end-user OIDC flow.
type ProviderConfig struct {
	Issuer       string // e.g. https://tenant.us.auth0.com/
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Audience     string
	Scopes       []string

	// LogoutReturnURL is where the provider sends the browser after logout.
	LogoutReturnURL string

	HTTPClient *http.Client
}

func (c ProviderConfig) validate() error {
	if c.Issuer == "" || c.ClientID == "" || c.ClientSecret == "" || c.RedirectURL == "" {
		return errors.New("idp: provider config missing required fields")
	}
	return nil
}

// Provider talks to the identity provider on behalf of end users: the
// authorization code flow, ID token verification and userinfo lookups.
type Provider struct {
	cfg         ProviderConfig
	oidc        *oidc.Provider
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
}

// LoginResult is what a completed authorization code exchange yields.
type LoginResult struct {
	Identity    auth.Identity
	Claims      map[string]any
	IDToken     string
	AccessToken string
	Expiry      time.Time
}

// NewProvider initializes the provider using OIDC discovery.
func NewProvider(ctx context.Context, cfg ProviderConfig) (*Provider, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = NewHTTPClient()
	}

	oidcProvider, err := oidc.NewProvider(clientContext(ctx, cfg.HTTPClient), cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("idp: discover %s: %w", cfg.Issuer, err)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	return &Provider{
		cfg:  cfg,
		oidc: oidcProvider,
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     oidcProvider.Endpoint(),
			Scopes:       scopes,
		},
		verifier: oidcProvider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

// AuthCodeURL builds the authorization URL with PKCE parameters.
func (p *Provider) AuthCodeURL(state string, codeVerifier string) string {
	opts := []oauth2.AuthCodeOption{
		oauth2.AccessTypeOnline,
		oauth2.S256ChallengeOption(codeVerifier),
	}
	if p.cfg.Audience != "" {
		opts = append(opts, oauth2.SetAuthURLParam("audience", p.cfg.Audience))
	}
	return p.oauthConfig.AuthCodeURL(state, opts...)
}

// ExchangeCode exchanges the authorization code and verifies the ID token.
// It creates no sessions; that is the caller's job.
func (p *Provider) ExchangeCode(ctx context.Context, code, codeVerifier string) (*LoginResult, error) {
	ctx = clientContext(ctx, p.cfg.HTTPClient)

	token, err := p.oauthConfig.Exchange(ctx, code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		logger.Error("token exchange failed", map[string]any{
			"error": err.Error(),
		})
		return nil, apperr.Wrap(apperr.CodeUpstreamAuth, "token exchange failed", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, apperr.New(apperr.CodeUpstreamAuth, "provider did not return id_token")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		logger.Error("id_token verification failed", map[string]any{
			"error": err.Error(),
		})
		return nil, apperr.Wrap(apperr.CodeUnauthenticated, "id_token verification failed", err)
	}

	var claims struct {
		Subject       string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("idp: id_token claims parse failed: %w", err)
	}
	if claims.Subject == "" {
		return nil, apperr.New(apperr.CodeUnauthenticated, "id_token missing subject")
	}

	all := map[string]any{}
	if err := idToken.Claims(&all); err != nil {
		return nil, fmt.Errorf("idp: id_token claims parse failed: %w", err)
	}

	logger.Info("oidc login verified", map[string]any{
		"issuer":         idToken.Issuer,
		"sub":            claims.Subject,
		"email_verified": claims.EmailVerified,
		"expiry_unix":    idToken.Expiry.Unix(),
	})

	return &LoginResult{
		Identity: auth.Identity{
			Subject:       claims.Subject,
			Email:         claims.Email,
			EmailVerified: claims.EmailVerified,
			Name:          claims.Name,
			Source:        auth.SourceSession,
		},
		Claims:      all,
		IDToken:     rawIDToken,
		AccessToken: token.AccessToken,
		Expiry:      token.Expiry,
	}, nil
}

// UserInfo verifies a bearer access token by calling the provider's userinfo
// endpoint. Any rejection is reported as Unauthenticated.
func (p *Provider) UserInfo(ctx context.Context, accessToken string) (*auth.Identity, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})

	info, err := p.oidc.UserInfo(clientContext(ctx, p.cfg.HTTPClient), ts)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnauthenticated, "Invalid token", err)
	}

	var profile struct {
		Name string `json:"name"`
	}
	if err := info.Claims(&profile); err != nil {
		return nil, apperr.Wrap(apperr.CodeUnauthenticated, "Invalid token", err)
	}

	return &auth.Identity{
		Subject:       info.Subject,
		Email:         info.Email,
		EmailVerified: info.EmailVerified,
		Name:          profile.Name,
		Source:        auth.SourceBearer,
	}, nil
}

// LogoutURL is the provider endpoint that ends the provider-side session.
func (p *Provider) LogoutURL() string {
	q := url.Values{}
	q.Set("client_id", p.cfg.ClientID)
	if p.cfg.LogoutReturnURL != "" {
		q.Set("returnTo", p.cfg.LogoutReturnURL)
	}
	return strings.TrimRight(p.cfg.Issuer, "/") + "/v2/logout?" + q.Encode()
}
