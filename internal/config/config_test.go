package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	t.Setenv("APP_URL", "https://identity.example.com/")
	t.Setenv("SHOPIFY_REDIRECT_URI", "")
	t.Setenv("CREDENTIAL_KEY_SLOT", "")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DefaultKeySlot, cfg.CredentialKeySlot)
	assert.Equal(t, 10*time.Second, cfg.OutboundTimeout)
	assert.Equal(t, "https://identity.example.com/auth/shopify/callback", cfg.ShopifyRedirectURI)
	assert.Equal(t, []string{"read_metaobjects", "write_metaobjects"}, cfg.ShopifyScopes)
}

func TestParse_ListsAreTrimmed(t *testing.T) {
	t.Setenv("SHOPIFY_SCOPES", " read_products , ,write_products")
	t.Setenv("CREDENTIAL_LEGACY_KEY_SLOTS", "OLD_KEY, OLDER_KEY ,")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("OUTBOUND_TIMEOUT", "3s")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, []string{"read_products", "write_products"}, cfg.ShopifyScopes)
	assert.Equal(t, []string{"OLD_KEY", "OLDER_KEY"}, cfg.CredentialLegacyKeySlots)
	assert.Nil(t, cfg.CORSAllowedOrigins)
	assert.Equal(t, 3*time.Second, cfg.OutboundTimeout)
}

func TestParse_InvalidDuration(t *testing.T) {
	t.Setenv("OUTBOUND_TIMEOUT", "soon")

	_, err := Parse()
	assert.Error(t, err)
}

func TestConfig_OAuthConfiguredAndWarnings(t *testing.T) {
	t.Setenv("TEST_PRIMARY_KEY", "")
	cfg := &Config{CredentialKeySlot: "TEST_PRIMARY_KEY"}
	assert.False(t, cfg.OAuthConfigured())
	assert.Len(t, cfg.Warnings(), 5)

	t.Setenv("TEST_PRIMARY_KEY", "material")
	cfg = &Config{
		ShopifyClientID:     "id",
		ShopifyClientSecret: "secret",
		ShopifyRedirectURI:  "https://identity.example.com/auth/shopify/callback",
		FinalizeSecret:      "fin",
		InternalAPISecret:   "internal",
		CredentialKeySlot:   "TEST_PRIMARY_KEY",
	}
	assert.True(t, cfg.OAuthConfigured())
	assert.Empty(t, cfg.Warnings())
}
