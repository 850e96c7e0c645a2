package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces processed event ids in Redis.
const KeyPrefix = "greenhouse:dedup:"

// RedisStore is a Store shared by every control-service replica. Entries expire
// through Redis key TTLs.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a store on client. A non-positive ttl falls back to DefaultTTL.
func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Seen(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, KeyPrefix+id).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check processed event %s: %w", id, err)
	}
	return n > 0, nil
}

func (s *RedisStore) Mark(ctx context.Context, id string) error {
	if err := s.client.SetNX(ctx, KeyPrefix+id, 1, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark event %s processed: %w", id, err)
	}
	return nil
}

// Len is unknown for the shared store.
func (s *RedisStore) Len() int { return -1 }
