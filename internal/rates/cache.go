package rates

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKey = "impex:rates:current"

// Cache wraps Redis helpers for the cached quote.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Get reports whether a cached quote existed and unmarshals it when present.
func (c *Cache) Get(ctx context.Context) (Quote, bool, error) {
	if c == nil || c.client == nil {
		return Quote{}, false, nil
	}
	data, err := c.client.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return Quote{}, false, nil
		}
		return Quote{}, false, err
	}
	var quote Quote
	if err := json.Unmarshal(data, &quote); err != nil {
		return Quote{}, false, err
	}
	return quote, true, nil
}

// Set stores the quote with the configured TTL.
func (c *Cache) Set(ctx context.Context, quote Quote) error {
	if c == nil || c.client == nil || c.ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(quote)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey, data, c.ttl).Err()
}
