package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// processedTracker deduplicates webhook deliveries by provider event id.
type processedTracker interface {
	AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, provider, eventID string) (bool, error)
}

// processedTTL keeps dedupe keys long past Stripe's 3-day retry horizon.
const processedTTL = 7 * 24 * time.Hour

// RedisProcessedTracker records handled event ids in Redis.
type RedisProcessedTracker struct {
	client *redis.Client
}

func NewRedisProcessedTracker(client *redis.Client) *RedisProcessedTracker {
	if client == nil {
		panic("payments: redis client required")
	}
	return &RedisProcessedTracker{client: client}
}

func processedKey(provider, eventID string) string {
	return fmt.Sprintf("webhook:processed:%s:%s", provider, eventID)
}

// AlreadyProcessed checks whether this provider event id was handled before.
func (t *RedisProcessedTracker) AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	n, err := t.client.Exists(ctx, processedKey(provider, eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("payments: check processed: %w", err)
	}
	return n > 0, nil
}

// MarkProcessed records the event id, returning false if it already existed.
func (t *RedisProcessedTracker) MarkProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	ok, err := t.client.SetNX(ctx, processedKey(provider, eventID), "1", processedTTL).Result()
	if err != nil {
		return false, fmt.Errorf("payments: mark processed: %w", err)
	}
	return ok, nil
}
