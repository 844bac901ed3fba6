package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultKeySlot is the environment variable holding the primary credential key
const DefaultKeySlot = "CREDENTIAL_ENCRYPTION_KEY"

// Config holds the service configuration read from the environment
type Config struct {
	Port   string `env:"PORT" envDefault:"8080"`
	AppURL string `env:"APP_URL" envDefault:"http://localhost:8080"`

	MongoURI      string `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGODB_DATABASE" envDefault:"storefront"`
	RedisURL      string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	ShopifyClientID      string   `env:"SHOPIFY_CLIENT_ID"`
	ShopifyClientSecret  string   `env:"SHOPIFY_CLIENT_SECRET"`
	ShopifyScopes        []string `env:"SHOPIFY_SCOPES" envSeparator:"," envDefault:"read_metaobjects,write_metaobjects"`
	ShopifyRedirectURI   string   `env:"SHOPIFY_REDIRECT_URI"`
	ShopifyWebhookSecret string   `env:"SHOPIFY_WEBHOOK_SECRET"`
	ShopifyAPIVersion    string   `env:"SHOPIFY_API_VERSION" envDefault:"2025-01"`

	// FinalizeSecret authenticates calls to the finalize endpoint. FinalizeURL
	// is set when provisioning runs in another deployment; empty means the
	// callback finalizes in process.
	FinalizeSecret string `env:"SHOPIFY_FINALIZE_SECRET"`
	FinalizeURL    string `env:"SHOPIFY_FINALIZE_URL"`

	InternalAPISecret string `env:"INTERNAL_API_SECRET"`

	CredentialKeySlot        string   `env:"CREDENTIAL_KEY_SLOT" envDefault:"CREDENTIAL_ENCRYPTION_KEY"`
	CredentialLegacyKeySlots []string `env:"CREDENTIAL_LEGACY_KEY_SLOTS" envSeparator:","`

	InstallFallbackURL string   `env:"INSTALL_FALLBACK_URL"`
	PortalRedirectURL  string   `env:"PORTAL_REDIRECT_URL" envDefault:"http://localhost:5173/stores"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	OutboundTimeout time.Duration `env:"OUTBOUND_TIMEOUT" envDefault:"10s"`
}

// Load reads .env when present and parses the environment. The returned
// bool reports whether a .env file was loaded.
func Load() (*Config, bool, error) {
	loaded := godotenv.Load() == nil

	cfg, err := Parse()
	if err != nil {
		return nil, loaded, err
	}
	return cfg, loaded, nil
}

// Parse parses the current environment into a Config
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	return &cfg, nil
}

func (c *Config) normalize() {
	c.ShopifyScopes = trimAll(c.ShopifyScopes)
	c.CredentialLegacyKeySlots = trimAll(c.CredentialLegacyKeySlots)
	c.CORSAllowedOrigins = trimAll(c.CORSAllowedOrigins)
	if c.CredentialKeySlot == "" {
		c.CredentialKeySlot = DefaultKeySlot
	}
	if c.ShopifyRedirectURI == "" && c.AppURL != "" {
		c.ShopifyRedirectURI = strings.TrimRight(c.AppURL, "/") + "/auth/shopify/callback"
	}
}

// OAuthConfigured reports whether the install flow has its client credentials
func (c *Config) OAuthConfigured() bool {
	return c.ShopifyClientID != "" && c.ShopifyClientSecret != "" && c.ShopifyRedirectURI != ""
}

// Warnings lists missing optional settings that disable a feature
func (c *Config) Warnings() []string {
	var warnings []string
	if !c.OAuthConfigured() {
		warnings = append(warnings, "SHOPIFY_CLIENT_ID/SHOPIFY_CLIENT_SECRET not set: install redirects to INSTALL_FALLBACK_URL")
	}
	if c.ShopifyWebhookSecret == "" && c.ShopifyClientSecret == "" {
		warnings = append(warnings, "no webhook secret: webhooks are rejected with 500")
	}
	if c.FinalizeSecret == "" {
		warnings = append(warnings, "SHOPIFY_FINALIZE_SECRET not set: finalize endpoint is disabled")
	}
	if c.InternalAPISecret == "" {
		warnings = append(warnings, "INTERNAL_API_SECRET not set: /api/shopify routes are disabled")
	}
	if os.Getenv(c.CredentialKeySlot) == "" {
		warnings = append(warnings, c.CredentialKeySlot+" not set: credentials cannot be stored")
	}
	return warnings
}

func trimAll(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
