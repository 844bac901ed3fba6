package domain

import "time"

// ProviderCredential is the at-rest form of a tenant's Shopify access token.
// The plaintext token is never persisted.
type ProviderCredential struct {
	Domain          string     `json:"domain"`
	ShopifyDomain   string     `json:"shopify_domain"`
	Ciphertext      string     `json:"-"`
	IV              string     `json:"-"`
	UpdatedAt       time.Time  `json:"updated_at"`
	LastValidatedAt *time.Time `json:"last_validated_at,omitempty"`
}

// CredentialEnvelope is an encrypted token: base64 ciphertext (tag included)
// and base64 IV.
type CredentialEnvelope struct {
	Ciphertext string
	IV         string
}

// KeyKind distinguishes the primary key from decryption-only legacy keys
type KeyKind string

const (
	KeyPrimary KeyKind = "primary"
	KeyLegacy  KeyKind = "legacy"
)

// KeySource reports which configured key opened an envelope
type KeySource struct {
	Kind KeyKind
	Slot string
}

// IsLegacy reports whether the envelope should be re-encrypted under the primary key
func (k KeySource) IsLegacy() bool {
	return k.Kind == KeyLegacy
}

// CredentialMapping maps a provider domain to the native domain its
// credential was stored under before the tenant model was unified.
type CredentialMapping struct {
	ID            string    `json:"id"`
	ShopifyDomain string    `json:"shopify_domain"`
	Domain        string    `json:"domain"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TokenGrant is the token endpoint's response
type TokenGrant struct {
	AccessToken string `json:"access_token"`
	Scope       string `json:"scope"`
	// OwnerEmail is the associated user's email for online-mode grants
	OwnerEmail string `json:"-"`
}

// CredentialStatus is what the portal needs to decide whether to prompt a reconnect
type CredentialStatus struct {
	Domain            string     `json:"domain"`
	ShopifyDomain     string     `json:"shopify_domain,omitempty"`
	Connected         bool       `json:"connected"`
	ReconnectRequired bool       `json:"reconnect_required"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`
	LastValidatedAt   *time.Time `json:"last_validated_at,omitempty"`
}
