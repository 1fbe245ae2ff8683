package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
)

type Config struct {
	AppPort    string `env:"APP_PORT" envDefault:"3000"`
	AppBaseURL string `env:"APP_BASE_URL"`

	// End-user login flow.
	Domain       string `env:"AUTH0_DOMAIN"`
	ClientID     string `env:"AUTH0_CLIENT_ID"`
	ClientSecret string `env:"AUTH0_CLIENT_SECRET"`
	Audience     string `env:"AUTH0_AUDIENCE"`
	Scope        string `env:"AUTH0_SCOPE" envDefault:"openid profile email"`

	// Service-to-service (management API) flow.
	MgmtDomain       string `env:"AUTH0_MGMT_DOMAIN"`
	MgmtClientID     string `env:"MGMT_CLIENT_ID"`
	MgmtClientSecret string `env:"MGMT_CLIENT_SECRET"`

	SessionSecret string        `env:"AUTH0_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	CookieSecure  bool          `env:"COOKIE_SECURE" envDefault:"true"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,https://pizza42-frontend.vercel.app"`
	APIBasePath    string   `env:"API_BASE_PATH" envDefault:"/api"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

const minSecretLen = 32

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over .env entries.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}

	if cfg.MgmtDomain == "" {
		cfg.MgmtDomain = cfg.Domain
	}
	cfg.APIBasePath = strings.TrimRight(cfg.APIBasePath, "/")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every missing or malformed setting at once.
func (c Config) Validate() error {
	var result *multierror.Error

	required := []struct {
		name  string
		value string
	}{
		{"APP_BASE_URL", c.AppBaseURL},
		{"AUTH0_DOMAIN", c.Domain},
		{"AUTH0_CLIENT_ID", c.ClientID},
		{"AUTH0_CLIENT_SECRET", c.ClientSecret},
		{"MGMT_CLIENT_ID", c.MgmtClientID},
		{"MGMT_CLIENT_SECRET", c.MgmtClientSecret},
		{"AUTH0_SECRET", c.SessionSecret},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			result = multierror.Append(result, fmt.Errorf("%s is required", r.name))
		}
	}

	if c.SessionSecret != "" && len(c.SessionSecret) < minSecretLen {
		result = multierror.Append(result, fmt.Errorf("AUTH0_SECRET must be at least %d characters", minSecretLen))
	}
	if c.AppBaseURL != "" {
		if u, err := url.Parse(c.AppBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			result = multierror.Append(result, fmt.Errorf("APP_BASE_URL must be an absolute url"))
		}
	}
	if len(c.AllowedOrigins) == 0 {
		result = multierror.Append(result, errors.New("CORS_ALLOWED_ORIGINS must list at least one origin"))
	}
	if c.SessionTTL <= 0 {
		result = multierror.Append(result, errors.New("SESSION_TTL must be positive"))
	}

	return result.ErrorOrNil()
}

// IssuerURL is the OIDC issuer for the end-user flow. Auth0 issuers carry
// a trailing slash and discovery is matched against it exactly.
func (c Config) IssuerURL() string {
	return BaseURL(c.Domain) + "/"
}

// ManagementURL is the base of the management API host.
func (c Config) ManagementURL() string {
	return BaseURL(c.MgmtDomain)
}

// CallbackURL is where the provider redirects after login.
func (c Config) CallbackURL() string {
	return strings.TrimRight(c.AppBaseURL, "/") + "/auth/callback"
}

// BaseURL turns a bare domain into an https URL. Values that already carry a
// scheme are kept, which is how local and test providers are configured.
func BaseURL(domain string) string {
	d := strings.TrimRight(strings.TrimSpace(domain), "/")
	if strings.Contains(d, "://") {
		return d
	}
	return "https://" + d
}
