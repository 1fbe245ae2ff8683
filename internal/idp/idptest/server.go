// Package idptest provides a disposable identity provider for tests. It
// serves OIDC discovery, JWKS, the token endpoint (authorization_code and
// client_credentials), userinfo and the management users API, and counts
// every call it receives.
package idptest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/require"
)

const (
	ClientID         = "test-client-id"
	ClientSecret     = "test-client-secret"
	MgmtClientID     = "test-mgmt-client-id"
	MgmtClientSecret = "test-mgmt-client-secret"

	keyID = "test-key"
)

// Call names reported by Calls.
const (
	CallDiscovery    = "discovery"
	CallUserInfo     = "userinfo"
	CallServiceToken = "service_token"
	CallCodeExchange = "code_exchange"
	CallGetUser      = "get_user"
	CallPatchUser    = "patch_user"
)

// User is a user record held by the fake provider.
type User struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	AppMetadata   map[string]json.RawMessage
}

type codeGrant struct {
	subject   string
	challenge string
}

type Server struct {
	t      testing.TB
	srv    *httptest.Server
	key    *rsa.PrivateKey
	signer jose.Signer

	mu            sync.Mutex
	users         map[string]*User
	accessTokens  map[string]string // access token -> subject
	serviceTokens map[string]bool
	codes         map[string]codeGrant
	calls         map[string]int
	seq           int

	rejectServiceToken bool
	getStatus          int
	patchStatus        int
}

// New starts a provider that is shut down when the test ends.
func New(t testing.TB) *Server {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.RS256, Key: jose.JSONWebKey{Key: key, KeyID: keyID}},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	require.NoError(t, err)

	s := &Server{
		t:             t,
		key:           key,
		signer:        signer,
		users:         map[string]*User{},
		accessTokens:  map[string]string{},
		serviceTokens: map[string]bool{},
		codes:         map[string]codeGrant{},
		calls:         map[string]int{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/openid-configuration", s.discovery)
	mux.HandleFunc("GET /.well-known/jwks.json", s.jwks)
	mux.HandleFunc("POST /oauth/token", s.token)
	mux.HandleFunc("GET /userinfo", s.userinfo)
	mux.HandleFunc("GET /api/v2/users/{id}", s.getUser)
	mux.HandleFunc("PATCH /api/v2/users/{id}", s.patchUser)

	s.srv = httptest.NewServer(mux)
	t.Cleanup(s.srv.Close)
	return s
}

// URL is the provider base URL without a trailing slash.
func (s *Server) URL() string { return s.srv.URL }

// Issuer is the OIDC issuer, which carries a trailing slash like Auth0's.
func (s *Server) Issuer() string { return s.srv.URL + "/" }

// Client returns an http client for the provider.
func (s *Server) Client() *http.Client { return s.srv.Client() }

// AddUser registers u, replacing any user with the same subject.
func (s *Server) AddUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.AppMetadata == nil {
		u.AppMetadata = map[string]json.RawMessage{}
	}
	s.users[u.Subject] = &u
}

// IssueAccessToken returns a token that userinfo accepts for subject.
func (s *Server) IssueAccessToken(subject string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newAccessTokenLocked(subject)
}

// IssueCode returns an authorization code for subject bound to the PKCE
// S256 challenge sent with the authorization request.
func (s *Server) IssueCode(subject, codeChallenge string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	code := fmt.Sprintf("code-%d", s.seq)
	s.codes[code] = codeGrant{subject: subject, challenge: codeChallenge}
	return code
}

// AppMetadata returns a copy of the stored app_metadata for subject.
func (s *Server) AppMetadata(subject string) map[string]json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[subject]
	if !ok {
		return nil
	}
	out := make(map[string]json.RawMessage, len(u.AppMetadata))
	for k, v := range u.AppMetadata {
		out[k] = v
	}
	return out
}

// Calls reports how many requests of the named kind were served.
func (s *Server) Calls(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

// TotalCalls counts every request except discovery and JWKS fetches.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for name, c := range s.calls {
		if name != CallDiscovery {
			n += c
		}
	}
	return n
}

func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = map[string]int{}
}

// RejectServiceToken makes client_credentials exchanges fail with 401.
func (s *Server) RejectServiceToken(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectServiceToken = reject
}

// FailGetUser makes user reads answer with status; 0 restores normal behavior.
func (s *Server) FailGetUser(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getStatus = status
}

// FailPatchUser makes user writes answer with status; 0 restores normal behavior.
func (s *Server) FailPatchUser(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patchStatus = status
}

func (s *Server) newAccessTokenLocked(subject string) string {
	s.seq++
	tok := fmt.Sprintf("access-%d", s.seq)
	s.accessTokens[tok] = subject
	return tok
}

func (s *Server) discovery(w http.ResponseWriter, _ *http.Request) {
	s.count(CallDiscovery)
	writeJSON(w, http.StatusOK, map[string]any{
		"issuer":                                s.Issuer(),
		"authorization_endpoint":                s.URL() + "/authorize",
		"token_endpoint":                        s.URL() + "/oauth/token",
		"userinfo_endpoint":                     s.URL() + "/userinfo",
		"jwks_uri":                              s.URL() + "/.well-known/jwks.json",
		"id_token_signing_alg_values_supported": []string{"RS256"},
		"response_types_supported":              []string{"code"},
		"subject_types_supported":               []string{"public"},
	})
}

func (s *Server) jwks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       &s.key.PublicKey,
		KeyID:     keyID,
		Algorithm: string(jose.RS256),
		Use:       "sig",
	}}})
}

func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		tokenError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	clientID, clientSecret, ok := r.BasicAuth()
	if !ok {
		clientID, clientSecret = r.PostForm.Get("client_id"), r.PostForm.Get("client_secret")
	}

	switch r.PostForm.Get("grant_type") {
	case "client_credentials":
		s.serviceToken(w, r, clientID, clientSecret)
	case "authorization_code":
		s.codeExchange(w, r, clientID, clientSecret)
	default:
		tokenError(w, http.StatusBadRequest, "unsupported_grant_type")
	}
}

func (s *Server) serviceToken(w http.ResponseWriter, r *http.Request, clientID, clientSecret string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[CallServiceToken]++

	if s.rejectServiceToken || clientID != MgmtClientID || clientSecret != MgmtClientSecret {
		tokenError(w, http.StatusUnauthorized, "access_denied")
		return
	}
	if r.PostForm.Get("audience") != s.URL()+"/api/v2/" {
		tokenError(w, http.StatusForbidden, "access_denied")
		return
	}

	s.seq++
	tok := fmt.Sprintf("mgmt-%d", s.seq)
	s.serviceTokens[tok] = true
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": tok,
		"token_type":   "Bearer",
		"expires_in":   86400,
	})
}

func (s *Server) codeExchange(w http.ResponseWriter, r *http.Request, clientID, clientSecret string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[CallCodeExchange]++

	if clientID != ClientID || clientSecret != ClientSecret {
		tokenError(w, http.StatusUnauthorized, "invalid_client")
		return
	}

	code := r.PostForm.Get("code")
	grant, ok := s.codes[code]
	if !ok {
		tokenError(w, http.StatusBadRequest, "invalid_grant")
		return
	}
	delete(s.codes, code)

	sum := sha256.Sum256([]byte(r.PostForm.Get("code_verifier")))
	if base64.RawURLEncoding.EncodeToString(sum[:]) != grant.challenge {
		tokenError(w, http.StatusBadRequest, "invalid_grant")
		return
	}

	u, ok := s.users[grant.subject]
	if !ok {
		tokenError(w, http.StatusBadRequest, "invalid_grant")
		return
	}

	now := time.Now()
	payload, err := json.Marshal(map[string]any{
		"iss":            s.Issuer(),
		"sub":            u.Subject,
		"aud":            ClientID,
		"iat":            now.Unix(),
		"exp":            now.Add(time.Hour).Unix(),
		"email":          u.Email,
		"email_verified": u.EmailVerified,
		"name":           u.Name,
	})
	if err != nil {
		tokenError(w, http.StatusInternalServerError, "server_error")
		return
	}
	signed, err := s.signer.Sign(payload)
	if err != nil {
		tokenError(w, http.StatusInternalServerError, "server_error")
		return
	}
	idToken, err := signed.CompactSerialize()
	if err != nil {
		tokenError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": s.newAccessTokenLocked(u.Subject),
		"id_token":     idToken,
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
}

func (s *Server) userinfo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[CallUserInfo]++

	subject, ok := s.accessTokens[bearer(r)]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid_token"})
		return
	}
	u, ok := s.users[subject]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid_token"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sub":            u.Subject,
		"email":          u.Email,
		"email_verified": u.EmailVerified,
		"name":           u.Name,
	})
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[CallGetUser]++

	if !s.serviceTokens[bearer(r)] {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Unauthorized"})
		return
	}
	if s.getStatus != 0 {
		writeJSON(w, s.getStatus, map[string]any{"error": "injected failure"})
		return
	}
	u, ok := s.users[r.PathValue("id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "Not Found"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":      u.Subject,
		"email":        u.Email,
		"app_metadata": u.AppMetadata,
	})
}

func (s *Server) patchUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[CallPatchUser]++

	if !s.serviceTokens[bearer(r)] {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Unauthorized"})
		return
	}
	if s.patchStatus != 0 {
		writeJSON(w, s.patchStatus, map[string]any{"error": "injected failure"})
		return
	}
	u, ok := s.users[r.PathValue("id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "Not Found"})
		return
	}

	var body struct {
		AppMetadata map[string]json.RawMessage `json:"app_metadata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	// app_metadata is merged at the top level, as the management API does.
	for k, v := range body.AppMetadata {
		u.AppMetadata[k] = v
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":      u.Subject,
		"app_metadata": u.AppMetadata,
	})
}

func (s *Server) count(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[name]++
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(h, "Bearer ")
}

func tokenError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]any{"error": code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
