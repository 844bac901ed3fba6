package application

import (
	"context"
	"fmt"

	"storefront-identity-layer/internal/domain"
	"storefront-identity-layer/internal/ports"

	"github.com/rs/zerolog"
)

// WebhookDispatcher routes an authenticated envelope to the first handler
// that claims its topic
type WebhookDispatcher struct {
	handlers []ports.WebhookHandler
	logger   zerolog.Logger
}

// NewWebhookDispatcher creates a dispatcher over the given handlers
func NewWebhookDispatcher(logger zerolog.Logger, handlers ...ports.WebhookHandler) *WebhookDispatcher {
	return &WebhookDispatcher{
		handlers: handlers,
		logger:   logger,
	}
}

// RegisterHandler adds a handler. Handlers are tried in registration order.
func (d *WebhookDispatcher) RegisterHandler(handler ports.WebhookHandler) {
	d.handlers = append(d.handlers, handler)
}

// Handles reports whether any registered handler claims topic
func (d *WebhookDispatcher) Handles(topic string) bool {
	for _, h := range d.handlers {
		if h.CanHandle(topic) {
			return true
		}
	}
	return false
}

// Dispatch runs the matching handler. Topics nobody handles are acknowledged
// with Handled=false.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, envelope *domain.WebhookEnvelope) (*domain.WebhookResult, error) {
	for _, h := range d.handlers {
		if !h.CanHandle(envelope.Topic) {
			continue
		}
		result, err := h.Handle(ctx, envelope)
		if err != nil {
			return nil, fmt.Errorf("failed to handle %s webhook: %w", envelope.Topic, err)
		}
		if result == nil {
			result = &domain.WebhookResult{Topic: envelope.Topic, Handled: true}
		}
		return result, nil
	}

	d.logger.Info().
		Str("topic", envelope.Topic).
		Str("shop", envelope.ShopDomain).
		Str("webhookId", envelope.WebhookID).
		Msg("No handler for webhook topic, acknowledging")
	return &domain.WebhookResult{Topic: envelope.Topic, Handled: false}, nil
}
