package cache

import (
	"context"
	"fmt"

	"github.com/soltixdb/chamberview/internal/config"
	"github.com/soltixdb/chamberview/internal/downsampling"
	"github.com/soltixdb/chamberview/internal/utils"
)

// NoopCache never stores anything
type NoopCache struct {
	counters
}

// Get implements Cache
func (c *NoopCache) Get(context.Context, Key) (downsampling.AggregationResult, bool, error) {
	c.record(false)
	return downsampling.AggregationResult{}, false, nil
}

// Set implements Cache
func (c *NoopCache) Set(context.Context, Key, downsampling.AggregationResult) error {
	return nil
}

// Stats implements Cache
func (c *NoopCache) Stats() Stats {
	return Stats{Type: string(utils.CacheTypeNone), Misses: c.misses.Load()}
}

// Close implements Cache
func (c *NoopCache) Close() error {
	return nil
}

// New creates a cache based on configuration
func New(cfg config.CacheConfig) (Cache, error) {
	cacheType := utils.CacheType(cfg.Type)
	if cacheType == "" {
		cacheType = utils.CacheTypeMemory
	}

	switch cacheType {
	case utils.CacheTypeMemory:
		return NewMemoryCache(cfg.TTL, cfg.CleanupInterval), nil

	case utils.CacheTypeRedis:
		rc, err := NewRedisCache(RedisConfig{
			URL:      cfg.URL,
			Password: cfg.Password,
			DB:       cfg.RedisDB,
			Prefix:   cfg.Prefix,
			TTL:      cfg.TTL,
			Compress: cfg.Compress,
		})
		if err != nil {
			return nil, err
		}
		return rc, nil

	case utils.CacheTypeNone:
		return &NoopCache{}, nil

	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}
