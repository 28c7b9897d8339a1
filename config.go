package identity

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const devBaseURL = "http://localhost:3000"

// Config carries the environment-provided settings the identity flows need.
// Everything has a non-production fallback; only BaseURL in production is a
// configuration error worth shouting about.
type Config struct {
	Environment     string        `env:"APP_ENV" envDefault:"development"`
	PublicBaseURL   string        `env:"APP_BASE_URL"`
	ResetTokenTTL   time.Duration `env:"RESET_TOKEN_TTL" envDefault:"1h"`
	InvitationTTL   time.Duration `env:"INVITATION_TTL" envDefault:"168h"`
	SMTPHost        string        `env:"SMTP_HOST"`
	SMTPPort        string        `env:"SMTP_PORT" envDefault:"587"`
	SMTPFrom        string        `env:"SMTP_FROM"`
	SMTPUsernameKey string        `env:"SMTP_USERNAME_SECRET" envDefault:"smtp_username"`
	SMTPPasswordKey string        `env:"SMTP_PASSWORD_SECRET" envDefault:"smtp_password"`
}

// LoadConfig reads the configuration from the process environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether the config targets a production environment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// BaseURL returns the public origin used to build human-facing links. A
// missing value degrades to a localhost origin outside production; in
// production the misconfiguration is logged loudly but link building still
// proceeds so the primary operation is never blocked on a vanity URL.
func (c *Config) BaseURL(logger Logger) string {
	if c.PublicBaseURL != "" {
		return strings.TrimRight(c.PublicBaseURL, "/")
	}

	if logger == nil {
		logger = defLogger{}
	}

	if c.IsProduction() {
		logger.Error("APP_BASE_URL is not set in production; reset links will point at %s", devBaseURL)
	} else {
		logger.Debug("APP_BASE_URL not set, falling back to %s", devBaseURL)
	}

	return devBaseURL
}

// EnvSecretStore resolves secrets from environment variables, uppercasing
// the requested name. It is the default SecretStore wiring for deployments
// that inject secrets through the environment.
type EnvSecretStore struct{}

// Get implements SecretStore.
func (EnvSecretStore) Get(_ context.Context, name string) (string, bool) {
	val, ok := os.LookupEnv(strings.ToUpper(name))
	if !ok || val == "" {
		return "", false
	}
	return val, true
}
