// internal/discovery/ratelimit/redis_store.go
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps a sorted set per identity/endpoint scored by millisecond timestamp.
type RedisStore struct {
	client redis.Cmdable
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) CountSince(ctx context.Context, identity, endpoint string, since time.Time) (int, error) {
	key := counterKey(endpoint, identity)
	min := strconv.FormatInt(since.UnixMilli(), 10)

	if err := s.client.ZRemRangeByScore(ctx, key, "-inf", "("+min).Err(); err != nil {
		return 0, fmt.Errorf("prune %s: %w", key, err)
	}

	count, err := s.client.ZCount(ctx, key, min, "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", key, err)
	}
	return int(count), nil
}

func (s *RedisStore) Record(ctx context.Context, identity, endpoint string, at time.Time, ttl time.Duration) error {
	key := counterKey(endpoint, identity)

	member := redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: strconv.FormatInt(at.UnixMilli(), 10) + "-" + uuid.NewString(),
	}
	if err := s.client.ZAdd(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("record %s: %w", key, err)
	}
	if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("expire %s: %w", key, err)
	}
	return nil
}
