// internal/discovery/resourcestore/cached.go
package resourcestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"resource-discovery/internal/common/logger"
	"resource-discovery/internal/models"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "ai:resources:"

// CachedStore memoizes catalog reads in Redis. Cache errors fall through to the
// wrapped store; store errors are never cached.
type CachedStore struct {
	next   Store
	cache  redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedStore(next Store, cache redis.Cmdable, ttl time.Duration, log logger.Logger) *CachedStore {
	return &CachedStore{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: log.With(map[string]interface{}{"component": "resource-cache"}),
	}
}

func (c *CachedStore) Query(ctx context.Context, filter Filter) ([]models.Resource, error) {
	return c.cached(ctx, "query", filter, func() ([]models.Resource, error) {
		return c.next.Query(ctx, filter)
	})
}

func (c *CachedStore) SearchKeywords(ctx context.Context, kq KeywordQuery) ([]models.Resource, error) {
	return c.cached(ctx, "keywords", kq, func() ([]models.Resource, error) {
		return c.next.SearchKeywords(ctx, kq)
	})
}

func (c *CachedStore) cached(ctx context.Context, kind string, params interface{}, load func() ([]models.Resource, error)) ([]models.Resource, error) {
	key, err := cacheKey(kind, params)
	if err != nil {
		return load()
	}

	if data, err := c.cache.Get(ctx, key).Bytes(); err == nil {
		var resources []models.Resource
		if err := json.Unmarshal(data, &resources); err == nil {
			return resources, nil
		}
	} else if err != redis.Nil {
		c.logger.Warn("resource cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
	}

	resources, err := load()
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(resources); err == nil {
		if err := c.cache.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("resource cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
		}
	}
	return resources, nil
}

func cacheKey(kind string, params interface{}) (string, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return cacheKeyPrefix + kind + ":" + hex.EncodeToString(sum[:16]), nil
}
