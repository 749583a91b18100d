package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is a best-effort transport-level duplicate filter for consumed queue
// messages. It is an optimization only: the payment store's unique work-order
// index remains the authoritative idempotency barrier.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) Key(group, topic string, partition int, offset int64) string {
	return fmt.Sprintf("billing:seen:%s:%s:%d:%d", group, topic, partition, offset)
}

// Seen reports whether the key has been marked. It never marks: a message
// whose offset stays uncommitted must look unseen when the broker redelivers
// it, so marking is a separate step taken only once the offset is committed.
func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Mark records the key so later redeliveries of the same offset are skipped.
func (s *Store) Mark(ctx context.Context, key string) error {
	return s.rdb.Set(ctx, key, "1", s.ttl).Err()
}
