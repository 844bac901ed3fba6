package domain

import "time"

// Webhook topics handled by the receiver
const (
	TopicAppUninstalled       = "app/uninstalled"
	TopicCustomersDataRequest = "customers/data_request"
	TopicCustomersRedact      = "customers/redact"
	TopicShopRedact           = "shop/redact"
)

// WebhookEnvelope is an inbound webhook as received. Body holds the exact
// bytes that were signed and must never be re-encoded before verification.
type WebhookEnvelope struct {
	Topic      string
	ShopDomain string
	WebhookID  string
	Signature  string
	Body       []byte
	ReceivedAt time.Time
}

// WebhookResult is returned to the provider after an authenticated delivery
type WebhookResult struct {
	Topic           string   `json:"topic"`
	Handled         bool     `json:"handled"`
	AffectedDomains []string `json:"affected_domains,omitempty"`
}

// WebhookEvent is published to in-process subscribers once a delivery has
// been authenticated and handled
type WebhookEvent struct {
	Topic           string
	Shop            string
	WebhookID       string
	Handled         bool
	AffectedDomains []string
	ReceivedAt      time.Time
}
