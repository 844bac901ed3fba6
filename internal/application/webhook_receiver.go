package application

import (
	"context"
	"fmt"
	"time"

	"storefront-identity-layer/internal/domain"
	"storefront-identity-layer/internal/ports"

	"github.com/rs/zerolog"
)

// Webhook outcomes recorded in metrics
const (
	webhookOutcomeHandled       = "handled"
	webhookOutcomeIgnored       = "ignored"
	webhookOutcomeUnauthorized  = "unauthorized"
	webhookOutcomeMisconfigured = "misconfigured"
	webhookOutcomeFailed        = "failed"
)

// Topic labels for deliveries whose topic header cannot be used as-is. The
// header is caller-controlled, so only topics a handler claims become labels.
const (
	webhookTopicUnverified = "unverified"
	webhookTopicOther      = "other"
)

// WebhookReceiver authenticates inbound webhooks and dispatches them by topic
type WebhookReceiver struct {
	secret     string
	verifier   ports.SignatureVerifier
	dispatcher *WebhookDispatcher
	publisher  ports.WebhookPublisher
	metrics    ports.Metrics
	logger     zerolog.Logger
	now        func() time.Time
}

// NewWebhookReceiver creates a receiver. The webhook secret is used when set,
// otherwise the app client secret. publisher may be nil.
func NewWebhookReceiver(
	webhookSecret string,
	clientSecret string,
	verifier ports.SignatureVerifier,
	dispatcher *WebhookDispatcher,
	publisher ports.WebhookPublisher,
	metrics ports.Metrics,
	logger zerolog.Logger,
) *WebhookReceiver {
	secret := webhookSecret
	if secret == "" {
		secret = clientSecret
	}
	return &WebhookReceiver{
		secret:     secret,
		verifier:   verifier,
		dispatcher: dispatcher,
		publisher:  publisher,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// Receive verifies the signature over the raw body and only then dispatches.
// It returns ErrConfiguration when no secret is available and
// ErrAuthentication when the signature does not match.
func (r *WebhookReceiver) Receive(ctx context.Context, envelope *domain.WebhookEnvelope) (*domain.WebhookResult, error) {
	if r.secret == "" {
		r.metrics.WebhookReceived(webhookTopicUnverified, webhookOutcomeMisconfigured)
		r.logger.Error().Str("topic", envelope.Topic).Msg("Webhook secret is not configured")
		return nil, fmt.Errorf("%w: webhook secret is not configured", domain.ErrConfiguration)
	}

	if !r.verifier.VerifyWebhook(envelope.Body, envelope.Signature, r.secret) {
		r.metrics.WebhookReceived(webhookTopicUnverified, webhookOutcomeUnauthorized)
		r.logger.Warn().
			Str("topic", envelope.Topic).
			Str("shop", envelope.ShopDomain).
			Str("webhookId", envelope.WebhookID).
			Msg("Rejected webhook with invalid signature")
		return nil, fmt.Errorf("%w: invalid webhook signature", domain.ErrAuthentication)
	}

	if envelope.ReceivedAt.IsZero() {
		envelope.ReceivedAt = r.now().UTC()
	}

	topicLabel := webhookTopicOther
	if r.dispatcher.Handles(envelope.Topic) {
		topicLabel = envelope.Topic
	}

	result, err := r.dispatcher.Dispatch(ctx, envelope)
	if err != nil {
		r.metrics.WebhookReceived(topicLabel, webhookOutcomeFailed)
		return nil, err
	}

	outcome := webhookOutcomeHandled
	if !result.Handled {
		outcome = webhookOutcomeIgnored
	}
	r.metrics.WebhookReceived(topicLabel, outcome)

	if r.publisher != nil {
		r.publisher.Publish(&domain.WebhookEvent{
			Topic:           envelope.Topic,
			Shop:            domain.NormalizeDomain(envelope.ShopDomain),
			WebhookID:       envelope.WebhookID,
			Handled:         result.Handled,
			AffectedDomains: result.AffectedDomains,
			ReceivedAt:      envelope.ReceivedAt,
		})
	}
	return result, nil
}
