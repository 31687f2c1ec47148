package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"fileshare/server/weather/domain"
)

const (
	redisKeyPrefix  = "weather:"
	lruCacheEntries = 1024
)

var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fileshare_weather_cache_hits_total",
		Help: "Weather lookups answered from the cache.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fileshare_weather_cache_misses_total",
		Help: "Weather lookups that went to the upstream API.",
	})
)

// Cache stores the last upstream answer per city. Get reports a miss with
// ok=false and a nil error.
type Cache interface {
	Get(ctx context.Context, city string) (domain.CacheEntry, bool, error)
	Set(ctx context.Context, city string, entry domain.CacheEntry) error
	Delete(ctx context.Context, city string) error
}

func cacheKey(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, city string) (domain.CacheEntry, bool, error) {
	raw, err := c.client.Get(ctx, redisKeyPrefix+cacheKey(city)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.CacheEntry{}, false, nil
	}
	if err != nil {
		return domain.CacheEntry{}, false, err
	}
	var entry domain.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return domain.CacheEntry{}, false, err
	}
	return entry, true, nil
}

func (c *RedisCache) Set(ctx context.Context, city string, entry domain.CacheEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, redisKeyPrefix+cacheKey(city), raw, c.ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, city string) error {
	return c.client.Del(ctx, redisKeyPrefix+cacheKey(city)).Err()
}

// MemoryCache is the per-process fallback used when no Redis is configured.
type MemoryCache struct {
	lru *expirable.LRU[string, domain.CacheEntry]
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{lru: expirable.NewLRU[string, domain.CacheEntry](lruCacheEntries, nil, ttl)}
}

func (c *MemoryCache) Get(_ context.Context, city string) (domain.CacheEntry, bool, error) {
	entry, ok := c.lru.Get(cacheKey(city))
	return entry, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, city string, entry domain.CacheEntry) error {
	c.lru.Add(cacheKey(city), entry)
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, city string) error {
	c.lru.Remove(cacheKey(city))
	return nil
}
