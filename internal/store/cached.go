package store

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kevp/kptv-sync/internal/cache"
	"github.com/kevp/kptv-sync/internal/models"
)

const (
	providersTTL = time.Hour
	filtersTTL   = time.Hour
)

// CachedStore wraps a Store with Redis caching for provider and filter
// lookups. All other methods delegate straight through. Cache failures
// are logged and fall back to the underlying store.
type CachedStore struct {
	Store
	redis *cache.Redis
	log   *logrus.Logger
}

// NewCachedStore decorates inner with Redis-backed read caching.
// A nil logger falls back to the logrus standard logger.
func NewCachedStore(inner Store, redis *cache.Redis, log *logrus.Logger) *CachedStore {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CachedStore{Store: inner, redis: redis, log: log}
}

func (c *CachedStore) GetProviders(ctx context.Context, providerID int64) ([]models.Provider, error) {
	key := fmt.Sprintf("providers:%d", providerID)
	if providers, err := cache.Get[[]models.Provider](ctx, c.redis, key); err == nil {
		return providers, nil
	}
	providers, err := c.Store.GetProviders(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if err := cache.Set(ctx, c.redis, key, providers, providersTTL); err != nil {
		c.log.Debugf("cache set %s: %v", key, err)
	}
	return providers, nil
}

func (c *CachedStore) GetFilterRules(ctx context.Context, ownerID int64) ([]models.FilterRule, error) {
	key := fmt.Sprintf("filters:%d", ownerID)
	if rules, err := cache.Get[[]models.FilterRule](ctx, c.redis, key); err == nil {
		return rules, nil
	}
	rules, err := c.Store.GetFilterRules(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if err := cache.Set(ctx, c.redis, key, rules, filtersTTL); err != nil {
		c.log.Debugf("cache set %s: %v", key, err)
	}
	return rules, nil
}

// ClearCache drops all cached provider and filter entries.
func (c *CachedStore) ClearCache(ctx context.Context) error {
	return cache.Clear(ctx, c.redis, "providers:*", "filters:*")
}
