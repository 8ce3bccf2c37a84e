package config

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/drophost/drop/internal/cache"
)

type cachingConf struct {
	RedisAddr string `yaml:"redis_addr"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	RedisDB   int    `yaml:"redis_db"`
	Disabled  bool   `yaml:"disabled"`
	// MemorySize is the entry capacity of the in-process cache used when no
	// redis address is configured
	MemorySize int `yaml:"memory_size"`
	// MaxLifetimeSeconds bounds how long a cached entry may be served
	MaxLifetimeSeconds int `yaml:"max_lifetime"`
}

func (c *cachingConf) validate() error {
	return nil
}

var defaultCachingConf = cachingConf{
	MemorySize:         1024,
	MaxLifetimeSeconds: 300,
}

// LoadCache builds the configured Cache, or returns nil when caching is
// disabled.
func LoadCache(c cachingConf) (cache.Cache, time.Duration) {
	if c.Disabled {
		return nil, 0
	}
	ttl := time.Duration(c.MaxLifetimeSeconds) * time.Second
	if c.RedisAddr != "" {
		return cache.NewRedis(
			&redis.Options{
				Addr:     c.RedisAddr,
				Username: c.Username,
				Password: c.Password,
				DB:       c.RedisDB,
			},
		), ttl
	}
	return cache.NewMemory(c.MemorySize), ttl
}
