package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/ishanbilolikar/pizza42-backend/internal/apperr"
	"github.com/ishanbilolikar/pizza42-backend/internal/logger"
)

const maxErrorBody = 4 << 10

// ManagementConfig configures the service-to-service flow against the
// provider's management API.
type ManagementConfig struct {
	BaseURL      string // e.g. https://tenant.us.auth0.com
	ClientID     string
	ClientSecret string

	// Audience defaults to BaseURL + "/api/v2/".
	Audience string

	HTTPClient *http.Client
}

// UserRecord is the subset of a provider user record this service reads.
type UserRecord struct {
	UserID      string                     `json:"user_id"`
	Email       string                     `json:"email"`
	AppMetadata map[string]json.RawMessage `json:"app_metadata"`
}

// Management reads and writes user records with a service token. It keeps
// no state between calls.
type Management struct {
	baseURL string
	creds   *clientcredentials.Config
	client  *http.Client
}

func NewManagement(cfg ManagementConfig) (*Management, error) {
	if cfg.BaseURL == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("idp: management config missing required fields")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = NewHTTPClient()
	}

	base := strings.TrimRight(cfg.BaseURL, "/")
	audience := cfg.Audience
	if audience == "" {
		audience = base + "/api/v2/"
	}

	return &Management{
		baseURL: base,
		creds: &clientcredentials.Config{
			ClientID:       cfg.ClientID,
			ClientSecret:   cfg.ClientSecret,
			TokenURL:       base + "/oauth/token",
			EndpointParams: url.Values{"audience": {audience}},
			AuthStyle:      oauth2.AuthStyleInParams,
		},
		client: cfg.HTTPClient,
	}, nil
}

// ServiceToken performs a fresh client-credentials exchange. Tokens are
// neither cached nor retried.
func (m *Management) ServiceToken(ctx context.Context) (string, error) {
	token, err := m.creds.Token(clientContext(ctx, m.client))
	if err != nil {
		logger.Error("management token request failed", map[string]any{
			"error": err.Error(),
		})
		return "", apperr.Wrap(apperr.CodeUpstreamAuth, "Failed to get management API token", err)
	}
	return token.AccessToken, nil
}

// GetUserRecord fetches a user record. AppMetadata is never nil on success.
func (m *Management) GetUserRecord(ctx context.Context, token, subject string) (*UserRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.userURL(subject), nil)
	if err != nil {
		return nil, fmt.Errorf("idp: build get user request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUpstreamAuth, "Failed to fetch user data", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperr.Wrap(apperr.CodeNotFound, "user not found", statusError(resp))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.Wrap(apperr.CodeUpstreamAuth, "Failed to fetch user data", statusError(resp))
	}

	var rec UserRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, apperr.Wrap(apperr.CodeUpstreamAuth, "Failed to fetch user data", err)
	}
	if rec.AppMetadata == nil {
		rec.AppMetadata = map[string]json.RawMessage{}
	}
	return &rec, nil
}

// PatchUserRecord merges metadata into the user's app_metadata.
func (m *Management) PatchUserRecord(ctx context.Context, token, subject string, metadata any) error {
	body, err := json.Marshal(map[string]any{"app_metadata": metadata})
	if err != nil {
		return fmt.Errorf("idp: marshal app_metadata: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, m.userURL(subject), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("idp: build patch user request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.CodeUpstreamWrite, "Failed to update user profile", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperr.Wrap(apperr.CodeUpstreamWrite, "Failed to update user profile", statusError(resp))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (m *Management) userURL(subject string) string {
	return m.baseURL + "/api/v2/users/" + url.PathEscape(subject)
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
