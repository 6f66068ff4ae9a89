package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/soltixdb/chamberview/internal/downsampling"
	"github.com/soltixdb/chamberview/internal/utils"
)

// RedisConfig represents Redis cache configuration
type RedisConfig struct {
	URL      string        // Redis URL (e.g., redis://localhost:6379/0)
	Password string        // Optional password
	DB       int           // Database number (default: 0)
	Prefix   string        // Key prefix (default: "chamberview")
	TTL      time.Duration // Entry lifetime
	Compress bool          // Snappy-compress payloads
}

// RedisCache shares results between service instances through Redis
type RedisCache struct {
	counters

	client *redis.Client
	config RedisConfig
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	// Parse URL or use defaults
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		// Fallback to simple options
		opts = &redis.Options{
			Addr:     cfg.URL,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newRedisCacheWithClient(client, cfg), nil
}

func newRedisCacheWithClient(client *redis.Client, cfg RedisConfig) *RedisCache {
	if cfg.Prefix == "" {
		cfg.Prefix = "chamberview"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = utils.DefaultCacheTTL
	}
	return &RedisCache{client: client, config: cfg}
}

// redisKey converts a cache key to a Redis key name
func (c *RedisCache) redisKey(key Key) string {
	return fmt.Sprintf("%s:agg:%s", c.config.Prefix, key.String())
}

// Get implements Cache
func (c *RedisCache) Get(ctx context.Context, key Key) (downsampling.AggregationResult, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, utils.CacheOperationTimeout)
	defer cancel()

	payload, err := c.client.Get(ctx, c.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.record(false)
		return downsampling.AggregationResult{}, false, nil
	}
	if err != nil {
		c.record(false)
		return downsampling.AggregationResult{}, false, fmt.Errorf("redis get failed: %w", err)
	}

	res, err := decodeResult(payload)
	if err != nil {
		c.record(false)
		return downsampling.AggregationResult{}, false, err
	}

	c.record(true)
	return res, true, nil
}

// Set implements Cache
func (c *RedisCache) Set(ctx context.Context, key Key, res downsampling.AggregationResult) error {
	payload, err := encodeResult(res, c.config.Compress)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, utils.CacheOperationTimeout)
	defer cancel()

	if err := c.client.Set(ctx, c.redisKey(key), payload, c.config.TTL).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Stats implements Cache
func (c *RedisCache) Stats() Stats {
	return Stats{
		Type:    string(utils.CacheTypeRedis),
		Entries: -1,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}

// Close closes the Redis client
func (c *RedisCache) Close() error {
	return c.client.Close()
}
