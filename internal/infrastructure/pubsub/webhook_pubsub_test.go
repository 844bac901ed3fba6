package pubsub

import (
	"context"
	"testing"
	"time"

	"storefront-identity-layer/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub *Subscription) *domain.WebhookEvent {
	t.Helper()
	select {
	case ev := <-sub.Events:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return nil
	}
}

func TestWebhookPubSub_FilterByTopicAndShop(t *testing.T) {
	ps := NewWebhookPubSub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	all := ps.Subscribe(ctx, nil, 4)
	uninstalls := ps.Subscribe(ctx, &Filter{Topics: []string{domain.TopicAppUninstalled}}, 4)
	barOnly := ps.Subscribe(ctx, &Filter{Shop: "bar.myshopify.com"}, 4)

	ps.Publish(&domain.WebhookEvent{Topic: domain.TopicShopRedact, Shop: "foo.myshopify.com"})
	ps.Publish(&domain.WebhookEvent{Topic: domain.TopicAppUninstalled, Shop: "foo.myshopify.com"})

	assert.Equal(t, domain.TopicShopRedact, receive(t, all).Topic)
	assert.Equal(t, domain.TopicAppUninstalled, receive(t, all).Topic)
	assert.Equal(t, domain.TopicAppUninstalled, receive(t, uninstalls).Topic)
	assert.Empty(t, uninstalls.Events)
	assert.Empty(t, barOnly.Events)
}

func TestWebhookPubSub_ShopFilterIsNormalized(t *testing.T) {
	ps := NewWebhookPubSub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := ps.Subscribe(ctx, &Filter{Shop: "https://Foo.myshopify.com/"}, 2)
	ps.Publish(&domain.WebhookEvent{Topic: domain.TopicAppUninstalled, Shop: "FOO.myshopify.com"})

	assert.Equal(t, "FOO.myshopify.com", receive(t, sub).Shop)
}

func TestWebhookPubSub_HandledOnly(t *testing.T) {
	ps := NewWebhookPubSub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := ps.Subscribe(ctx, &Filter{HandledOnly: true}, 2)
	ps.Publish(&domain.WebhookEvent{Topic: "orders/create"})
	ps.Publish(&domain.WebhookEvent{Topic: domain.TopicAppUninstalled, Handled: true})
	ps.Publish(nil)

	assert.Equal(t, domain.TopicAppUninstalled, receive(t, sub).Topic)
	assert.Empty(t, sub.Events)
}

func TestWebhookPubSub_FullBufferDropsWithoutBlocking(t *testing.T) {
	ps := NewWebhookPubSub(zerolog.Nop())
	sub := ps.Subscribe(context.Background(), nil, 1)

	done := make(chan struct{})
	go func() {
		ps.Publish(&domain.WebhookEvent{Topic: "a"})
		ps.Publish(&domain.WebhookEvent{Topic: "b"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	assert.Equal(t, "a", receive(t, sub).Topic)
	assert.Empty(t, sub.Events)
	assert.Equal(t, int64(1), ps.Dropped())
}

func TestWebhookPubSub_CancelUnsubscribes(t *testing.T) {
	ps := NewWebhookPubSub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	sub := ps.Subscribe(ctx, nil, 1)
	require.Equal(t, 1, ps.Subscribers())
	require.NotEmpty(t, sub.ID)

	cancel()
	require.Eventually(t, func() bool { return ps.Subscribers() == 0 }, time.Second, 10*time.Millisecond)

	_, open := <-sub.Events
	assert.False(t, open)

	// publishing after removal is a no-op
	ps.Publish(&domain.WebhookEvent{Topic: "late"})
	ps.Unsubscribe(sub.ID)
}

func TestAuditLogger_ReturnsWhenSubscriptionCloses(t *testing.T) {
	ps := NewWebhookPubSub(zerolog.Nop())
	sub := ps.Subscribe(context.Background(), nil, 2)

	done := make(chan struct{})
	go func() {
		AuditLogger(sub, zerolog.Nop())
		close(done)
	}()

	ps.Publish(&domain.WebhookEvent{Topic: domain.TopicShopRedact, Shop: "foo.myshopify.com"})
	ps.Unsubscribe(sub.ID)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("audit logger did not stop")
	}
}
