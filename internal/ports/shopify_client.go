package ports

import (
	"context"
	"net/url"

	"storefront-identity-layer/internal/domain"
)

// SecretCodec encrypts provider access tokens at rest
type SecretCodec interface {
	Encrypt(plaintext string) (domain.CredentialEnvelope, error)
	Decrypt(ciphertext, iv string) (string, domain.KeySource, error)
}

// SignatureVerifier authenticates OAuth callbacks and webhooks
type SignatureVerifier interface {
	VerifyQuery(query url.Values, secret string) bool
	VerifyWebhook(body []byte, signature, secret string) bool
}

// TokenExchanger trades an authorization code for an access token
type TokenExchanger interface {
	Exchange(ctx context.Context, shop, code string) (*domain.TokenGrant, error)
}

// Finalizer hands a freshly exchanged token to tenant provisioning
type Finalizer interface {
	Finalize(ctx context.Context, req domain.FinalizeRequest) (*domain.FinalizeResult, error)
}

// ShopifyGraphQLClient runs Admin GraphQL documents on behalf of a shop
type ShopifyGraphQLClient interface {
	Query(ctx context.Context, shopDomain, accessToken, query string, vars map[string]any, out any) error
}

// Metrics records security-relevant outcomes
type Metrics interface {
	CallbackCompleted(outcome string)
	WebhookReceived(topic, outcome string)
	CredentialDecrypted(kind string)
	CredentialReencryptFailed()
}
