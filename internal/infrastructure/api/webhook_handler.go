package api

import (
	"errors"
	"io"
	"net/http"

	"storefront-identity-layer/internal/application"
	"storefront-identity-layer/internal/domain"

	"github.com/rs/zerolog"
)

// maxWebhookBody caps inbound webhook payloads
const maxWebhookBody = 1 << 20

// Shopify webhook headers
const (
	headerTopic      = "X-Shopify-Topic"
	headerHMAC       = "X-Shopify-Hmac-Sha256"
	headerShopDomain = "X-Shopify-Shop-Domain"
	headerWebhookID  = "X-Shopify-Webhook-Id"
)

type webhookResponse struct {
	OK              bool     `json:"ok"`
	Topic           string   `json:"topic"`
	Handled         bool     `json:"handled"`
	AffectedDomains []string `json:"affected_domains,omitempty"`
}

// WebhookHandler receives Shopify webhooks
type WebhookHandler struct {
	receiver *application.WebhookReceiver
	logger   zerolog.Logger
}

// NewWebhookHandler creates the webhook HTTP handler
func NewWebhookHandler(receiver *application.WebhookReceiver, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{receiver: receiver, logger: logger}
}

// Receive godoc
// POST /webhooks/shopify
// The body is read once and verified as received.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		writeMessage(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	envelope := &domain.WebhookEnvelope{
		Topic:      r.Header.Get(headerTopic),
		ShopDomain: r.Header.Get(headerShopDomain),
		WebhookID:  r.Header.Get(headerWebhookID),
		Signature:  r.Header.Get(headerHMAC),
		Body:       body,
	}

	result, err := h.receiver.Receive(r.Context(), envelope)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrConfiguration):
			writeMessage(w, http.StatusInternalServerError, "webhook verification is not configured")
		case errors.Is(err, domain.ErrAuthentication):
			writeMessage(w, http.StatusUnauthorized, "invalid signature")
		default:
			h.logger.Error().Err(err).Str("topic", envelope.Topic).Msg("Failed to process webhook")
			writeMessage(w, http.StatusInternalServerError, "failed to process webhook")
		}
		return
	}

	writeJSON(w, http.StatusOK, webhookResponse{
		OK:              true,
		Topic:           result.Topic,
		Handled:         result.Handled,
		AffectedDomains: result.AffectedDomains,
	})
}
