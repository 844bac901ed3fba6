package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"storefront-identity-layer/internal/domain"

	"github.com/rs/zerolog"
)

// CredentialPurger deletes stored credentials for a provider domain
type CredentialPurger interface {
	PurgeByShopifyDomain(ctx context.Context, shopifyDomain string) ([]string, error)
}

// AppUninstalledHandler handles app uninstalled webhook events
type AppUninstalledHandler struct {
	logger      zerolog.Logger
	credentials CredentialPurger
}

// NewAppUninstalledHandler creates a new app uninstalled webhook handler
func NewAppUninstalledHandler(logger zerolog.Logger, credentials CredentialPurger) *AppUninstalledHandler {
	return &AppUninstalledHandler{
		logger:      logger,
		credentials: credentials,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *AppUninstalledHandler) CanHandle(topic string) bool {
	return topic == domain.TopicAppUninstalled
}

type uninstalledPayload struct {
	Domain          string `json:"domain"`
	MyshopifyDomain string `json:"myshopify_domain"`
}

// Handle removes every credential stored for the uninstalling shop
func (h *AppUninstalledHandler) Handle(ctx context.Context, envelope *domain.WebhookEnvelope) (*domain.WebhookResult, error) {
	shopDomain := domain.NormalizeDomain(envelope.ShopDomain)
	if shopDomain == "" {
		var payload uninstalledPayload
		if err := json.Unmarshal(envelope.Body, &payload); err != nil {
			return nil, fmt.Errorf("failed to parse app uninstalled webhook payload: %w", err)
		}
		shopDomain = domain.NormalizeDomain(payload.MyshopifyDomain)
		if shopDomain == "" {
			shopDomain = domain.NormalizeDomain(payload.Domain)
		}
	}

	providerDomain := domain.ProviderDomain(shopDomain)
	if providerDomain == "" {
		h.logger.Warn().
			Str("topic", envelope.Topic).
			Str("webhookId", envelope.WebhookID).
			Msg("App uninstalled webhook without a shop domain, nothing to purge")
		return &domain.WebhookResult{Topic: envelope.Topic, Handled: true, AffectedDomains: []string{}}, nil
	}

	affected, err := h.credentials.PurgeByShopifyDomain(ctx, providerDomain)
	if err != nil {
		return nil, fmt.Errorf("failed to purge credentials for %s: %w", providerDomain, err)
	}
	if affected == nil {
		affected = []string{}
	}

	h.logger.Info().
		Str("shop", providerDomain).
		Str("webhookId", envelope.WebhookID).
		Strs("affectedDomains", affected).
		Msg("App uninstalled - credentials purged")

	return &domain.WebhookResult{Topic: envelope.Topic, Handled: true, AffectedDomains: affected}, nil
}
