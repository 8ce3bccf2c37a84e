// Package cache provides a small byte cache for entry lookups that do not
// count views. It defaults to an in-process LRU and can be switched to redis
// so multiple replicas behind a load balancer share one cache.
package cache

import (
	"context"
	"time"

	"github.com/bluele/gcache"
	"github.com/redis/go-redis/v9"
)

// Cache is the interface all cache implementations satisfy. A miss is
// (nil, nil), never an error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type memoryCache struct {
	c gcache.Cache
}

// NewMemory returns an in-process LRU cache holding up to size values.
func NewMemory(size int) Cache {
	if size <= 0 {
		size = 1024
	}
	return &memoryCache{c: gcache.New(size).LRU().Build()}
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	v, err := m.c.Get(key)
	if err != nil {
		// gcache only errors on missing keys
		return nil, nil
	}
	return v.([]byte), nil
}

func (m *memoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return m.c.Set(key, value)
	}
	return m.c.SetWithExpire(key, value, ttl)
}

func (m *memoryCache) Delete(_ context.Context, key string) error {
	m.c.Remove(key)
	return nil
}

type redisCache struct {
	c *redis.Client
}

// NewRedis returns a Cache backed by the redis instance described by opts.
func NewRedis(opts *redis.Options) Cache {
	return &redisCache{c: redis.NewClient(opts)}
}

func (r *redisCache) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.c.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.c.Set(ctx, key, value, ttl).Err()
}

func (r *redisCache) Delete(ctx context.Context, key string) error {
	return r.c.Del(ctx, key).Err()
}
