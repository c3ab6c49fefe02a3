package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RecommendationCache is an optional Redis-backed cache for ranked
// recommendation sets. With no Redis configured (or unreachable) every
// operation is a no-op and the service computes rankings on demand.
type RecommendationCache struct {
	client *redis.Client
}

// NewRecommendationCache connects to Redis when redisURL is non-empty.
// Connection failures degrade to a disabled cache rather than an error.
func NewRecommendationCache(redisURL string) *RecommendationCache {
	if redisURL == "" {
		return &RecommendationCache{}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("invalid REDIS_URL, recommendation cache disabled: %v", err)
		return &RecommendationCache{}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("redis ping failed, recommendation cache disabled: %v", err)
		client.Close()
		return &RecommendationCache{}
	}

	log.Printf("recommendation cache connected: %s", redisURL)
	return &RecommendationCache{client: client}
}

// Available reports whether a Redis connection is active.
func (c *RecommendationCache) Available() bool {
	return c.client != nil
}

// Get unmarshals a cached value into dest. The bool reports a hit.
func (c *RecommendationCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if c.client == nil {
		return false, nil
	}
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache: get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return true, nil
}

// Set stores a value with a TTL.
func (c *RecommendationCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache: set %s: %w", key, err)
	}
	return nil
}

// Close releases the Redis connection.
func (c *RecommendationCache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
