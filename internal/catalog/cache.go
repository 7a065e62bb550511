package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/menu-catalog/internal/resilience"
)

// Cache wraps Redis helpers for JSON payloads.
type Cache struct {
	client  *redis.Client
	ttl     time.Duration
	breaker *resilience.Breaker
}

// NewCache constructs a cache helper. A nil client or non-positive TTL yields a cache
// that never stores anything.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// WithBreaker guards reads and writes with b. While it is open lookups miss and writes
// are dropped. Deletes always reach Redis so an entry is never left stale on purpose.
func (c *Cache) WithBreaker(b *resilience.Breaker) *Cache {
	if c != nil {
		c.breaker = b
	}
	return c
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// GetJSON unmarshals a cached JSON payload into dst. It reports whether the key existed.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if !c.enabled() || key == "" {
		return false, nil
	}
	var data []byte
	err := c.guard(ctx, func(ctx context.Context) error {
		var err error
		data, err = c.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	})
	if errors.Is(err, resilience.ErrOpen) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON serialises v as JSON and stores it with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if !c.enabled() || key == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	err = c.guard(ctx, func(ctx context.Context) error {
		return c.client.Set(ctx, key, data, c.ttl).Err()
	})
	if errors.Is(err, resilience.ErrOpen) {
		return nil
	}
	return err
}

// Delete evicts the given keys.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if !c.enabled() || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *Cache) guard(ctx context.Context, fn func(context.Context) error) error {
	if c.breaker == nil {
		return fn(ctx)
	}
	return c.breaker.Do(ctx, fn)
}

// Stored ids are lowercase (ObjectID hex, uuid) while lookups accept either case, so keys
// are built from the lowercased id.
func categoryKey(id string) string    { return "catalog:category:" + strings.ToLower(id) }
func subCategoryKey(id string) string { return "catalog:subcategory:" + strings.ToLower(id) }
func itemKey(id string) string        { return "catalog:item:" + strings.ToLower(id) }
