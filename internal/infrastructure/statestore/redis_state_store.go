package statestore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront-identity-layer/internal/domain"
	"storefront-identity-layer/internal/ports"

	"github.com/redis/go-redis/v9"
)

var _ ports.InstallStateStore = (*RedisStateStore)(nil)

const installStatePrefix = "shopify:oauth:state:"

// RedisStateStore keeps issued install states with a Redis TTL. Consume uses
// GETDEL so a state can be redeemed exactly once.
type RedisStateStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStateStore creates a new Redis-backed install state store
func NewRedisStateStore(client *redis.Client) *RedisStateStore {
	return &RedisStateStore{client: client, now: time.Now}
}

// Issue stores a state until its ExpiresAt
func (s *RedisStateStore) Issue(ctx context.Context, state *domain.InstallState) error {
	ttl := state.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("install state already expired")
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal install state: %w", err)
	}

	// NX keeps a colliding state from overwriting one already in flight
	ok, err := s.client.SetNX(ctx, installStatePrefix+state.State, data, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to save install state: %w", err)
	}
	if !ok {
		return fmt.Errorf("install state already issued")
	}
	return nil
}

// Consume fetches and deletes a state atomically. Unknown, consumed and
// expired states return nil, nil.
func (s *RedisStateStore) Consume(ctx context.Context, state string) (*domain.InstallState, error) {
	if state == "" {
		return nil, nil
	}

	data, err := s.client.GetDel(ctx, installStatePrefix+state).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume install state: %w", err)
	}

	var issued domain.InstallState
	if err := json.Unmarshal(data, &issued); err != nil {
		return nil, fmt.Errorf("failed to unmarshal install state: %w", err)
	}
	if issued.Expired(s.now()) {
		return nil, nil
	}
	return &issued, nil
}
