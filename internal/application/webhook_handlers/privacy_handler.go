package webhook_handlers

import (
	"context"
	"encoding/json"

	"storefront-identity-layer/internal/domain"

	"github.com/rs/zerolog"
)

// PrivacyHandler acknowledges the mandatory privacy topics. No customer data
// is stored by this service, so there is nothing to export or erase.
type PrivacyHandler struct {
	logger zerolog.Logger
}

// NewPrivacyHandler creates a new privacy webhook handler
func NewPrivacyHandler(logger zerolog.Logger) *PrivacyHandler {
	return &PrivacyHandler{
		logger: logger,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *PrivacyHandler) CanHandle(topic string) bool {
	return topic == domain.TopicCustomersDataRequest ||
		topic == domain.TopicCustomersRedact ||
		topic == domain.TopicShopRedact
}

type privacyPayload struct {
	ShopID   int64 `json:"shop_id"`
	Customer struct {
		ID int64 `json:"id"`
	} `json:"customer"`
	OrdersRequested []int64 `json:"orders_requested"`
	OrdersToRedact  []int64 `json:"orders_to_redact"`
}

// Handle logs the request. Payloads that do not parse are still acknowledged.
func (h *PrivacyHandler) Handle(ctx context.Context, envelope *domain.WebhookEnvelope) (*domain.WebhookResult, error) {
	event := h.logger.Info().
		Str("topic", envelope.Topic).
		Str("shop", domain.NormalizeDomain(envelope.ShopDomain)).
		Str("webhookId", envelope.WebhookID)

	var payload privacyPayload
	if err := json.Unmarshal(envelope.Body, &payload); err == nil {
		event = event.Int64("shopId", payload.ShopID)
		if payload.Customer.ID != 0 {
			event = event.Int64("customerId", payload.Customer.ID)
		}
		switch envelope.Topic {
		case domain.TopicCustomersDataRequest:
			event = event.Int("ordersRequested", len(payload.OrdersRequested))
		case domain.TopicCustomersRedact:
			event = event.Int("ordersToRedact", len(payload.OrdersToRedact))
		}
	}
	event.Msg("Privacy webhook received")

	return &domain.WebhookResult{Topic: envelope.Topic, Handled: true}, nil
}
