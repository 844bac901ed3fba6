package pubsub

import (
	"context"
	"sync"
	"sync/atomic"

	"storefront-identity-layer/internal/domain"
	"storefront-identity-layer/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var _ ports.WebhookPublisher = (*WebhookPubSub)(nil)

const defaultBuffer = 16

// Filter narrows which webhook events a subscription receives. The zero
// value matches everything.
type Filter struct {
	Topics      []string
	Shop        string
	HandledOnly bool
}

// Subscription receives matching events on Events until it is closed
type Subscription struct {
	ID     string
	Events <-chan *domain.WebhookEvent

	events chan *domain.WebhookEvent
	topics map[string]struct{}
	shop   string
	filter Filter
	cancel context.CancelFunc
}

func (s *Subscription) accepts(event *domain.WebhookEvent) bool {
	if s.filter.HandledOnly && !event.Handled {
		return false
	}
	if len(s.topics) > 0 {
		if _, ok := s.topics[event.Topic]; !ok {
			return false
		}
	}
	return s.shop == "" || s.shop == domain.NormalizeDomain(event.Shop)
}

// WebhookPubSub fans authenticated webhook events out to in-process
// subscribers such as the audit logger
type WebhookPubSub struct {
	mu      sync.RWMutex
	subs    map[string]*Subscription
	dropped atomic.Int64
	logger  zerolog.Logger
}

// NewWebhookPubSub creates an empty fan-out
func NewWebhookPubSub(logger zerolog.Logger) *WebhookPubSub {
	return &WebhookPubSub{
		subs:   make(map[string]*Subscription),
		logger: logger,
	}
}

// Subscribe registers a subscription. It is closed when ctx is cancelled
// or Unsubscribe is called. A nil filter matches every event.
func (ps *WebhookPubSub) Subscribe(ctx context.Context, filter *Filter, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	subCtx, cancel := context.WithCancel(ctx)

	events := make(chan *domain.WebhookEvent, buffer)
	sub := &Subscription{
		ID:     uuid.NewString(),
		Events: events,
		events: events,
		cancel: cancel,
	}
	if filter != nil {
		sub.filter = *filter
		sub.shop = domain.NormalizeDomain(filter.Shop)
		if len(filter.Topics) > 0 {
			sub.topics = make(map[string]struct{}, len(filter.Topics))
			for _, t := range filter.Topics {
				sub.topics[t] = struct{}{}
			}
		}
	}

	ps.mu.Lock()
	ps.subs[sub.ID] = sub
	ps.mu.Unlock()

	ps.logger.Debug().
		Str("subscription", sub.ID).
		Strs("topics", sub.filter.Topics).
		Str("shop", sub.shop).
		Msg("Webhook subscription created")

	go func() {
		<-subCtx.Done()
		ps.Unsubscribe(sub.ID)
	}()

	return sub
}

// Unsubscribe closes and removes a subscription. Unknown ids are ignored.
func (ps *WebhookPubSub) Unsubscribe(id string) {
	ps.mu.Lock()
	sub, ok := ps.subs[id]
	if ok {
		delete(ps.subs, id)
		close(sub.events)
	}
	ps.mu.Unlock()

	if ok {
		sub.cancel()
		ps.logger.Debug().Str("subscription", id).Msg("Webhook subscription removed")
	}
}

// Publish delivers event to every matching subscription without blocking;
// a subscriber with a full buffer misses the event.
func (ps *WebhookPubSub) Publish(event *domain.WebhookEvent) {
	if event == nil {
		return
	}

	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for _, sub := range ps.subs {
		if !sub.accepts(event) {
			continue
		}
		select {
		case sub.events <- event:
		default:
			ps.dropped.Add(1)
			ps.logger.Warn().
				Str("subscription", sub.ID).
				Str("topic", event.Topic).
				Str("shop", event.Shop).
				Msg("Subscriber buffer full, dropping webhook event")
		}
	}
}

// Subscribers returns the number of open subscriptions
func (ps *WebhookPubSub) Subscribers() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.subs)
}

// Dropped returns how many deliveries were skipped on full buffers
func (ps *WebhookPubSub) Dropped() int64 {
	return ps.dropped.Load()
}

// AuditLogger logs every event on sub until the subscription closes
func AuditLogger(sub *Subscription, logger zerolog.Logger) {
	for event := range sub.Events {
		logger.Info().
			Str("topic", event.Topic).
			Str("shop", event.Shop).
			Str("webhookId", event.WebhookID).
			Bool("handled", event.Handled).
			Strs("affectedDomains", event.AffectedDomains).
			Time("receivedAt", event.ReceivedAt).
			Msg("Webhook audit")
	}
}
