package ports

import (
	"context"

	"storefront-identity-layer/internal/domain"
)

// WebhookHandler processes one family of authenticated webhook topics
type WebhookHandler interface {
	CanHandle(topic string) bool
	Handle(ctx context.Context, envelope *domain.WebhookEnvelope) (*domain.WebhookResult, error)
}

// WebhookPublisher fans handled webhook events out to subscribers
type WebhookPublisher interface {
	Publish(event *domain.WebhookEvent)
}
