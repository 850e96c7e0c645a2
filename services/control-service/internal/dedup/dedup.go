// Package dedup remembers the ids of alert events that were already handled so that
// redelivered events are acknowledged without side effects.
package dedup

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Defaults for MemoryStore.
const (
	DefaultCapacity = 10000
	DefaultTTL      = 24 * time.Hour
)

// Store records processed event ids.
type Store interface {
	// Seen reports whether id was marked and has not expired.
	Seen(ctx context.Context, id string) (bool, error)
	// Mark records id as processed.
	Mark(ctx context.Context, id string) error
	// Len returns the number of ids currently remembered, or -1 if unknown.
	Len() int
}

// MemoryStore is a bounded in-process Store over an expiring LRU. Seen does not
// promote an id, so when full the id marked longest ago is evicted first. Ids older
// than the TTL are treated as unseen.
type MemoryStore struct {
	capacity int
	ttl      time.Duration
	cache    *expirable.LRU[string, struct{}]
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store. Non-positive arguments fall back to the defaults.
func NewMemoryStore(capacity int, ttl time.Duration) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		capacity: capacity,
		ttl:      ttl,
		cache:    expirable.NewLRU[string, struct{}](capacity, nil, ttl),
	}
}

func (s *MemoryStore) Seen(_ context.Context, id string) (bool, error) {
	_, ok := s.cache.Peek(id)
	return ok, nil
}

// Mark records id. Re-marking refreshes its expiry and makes it the newest entry.
func (s *MemoryStore) Mark(_ context.Context, id string) error {
	s.cache.Add(id, struct{}{})
	return nil
}

// Len may briefly include ids that expired since the cache's last cleanup tick.
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}
