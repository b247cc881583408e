package redis

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Cache memoizes expensive idempotent calls with a per-call TTL.
// A cache failure never prevents the wrapped call from executing: every
// internal error degrades to invoking the function directly.
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper.
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

// Key builds a stable cache key from a function identity and its arguments.
func Key(fn string, args ...interface{}) string {
	raw, err := json.Marshal(args)
	if err != nil {
		raw = []byte(fmt.Sprint(args...))
	}
	sum := sha1.Sum(raw)
	return fmt.Sprintf("%s:%s", fn, hex.EncodeToString(sum[:8]))
}

// Get retrieves a cached value. A missing or undecodable entry is a miss,
// not an error.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) bool {
	if !c.client.Enabled() {
		return false
	}

	fullKey := fmt.Sprintf("%s:cache:%s", c.prefix, key)
	data, err := c.client.Redis().Get(ctx, fullKey).Bytes()
	if err != nil {
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		// Corrupt entry: drop it and treat as a miss.
		_ = c.client.Redis().Del(ctx, fullKey).Err()
		return false
	}

	return true
}

// Set stores a value in cache with TTL.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	fullKey := fmt.Sprintf("%s:cache:%s", c.prefix, key)
	return c.client.Redis().Set(ctx, fullKey, data, ttl).Err()
}

// GetOrSet retrieves from cache or calls fn to populate it. Errors from the
// cache itself are swallowed; only fn errors are returned.
func (c *Cache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, fn func() (interface{}, error)) error {
	if c.Get(ctx, key, dest) {
		return nil
	}

	value, err := fn()
	if err != nil {
		return err
	}

	// Best effort: a failed store must not fail the call.
	_ = c.Set(ctx, key, value, ttl)

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return json.Unmarshal(data, dest)
}

// Predefined TTLs.
const (
	TTLShort  = 1 * time.Minute  // live quotes
	TTLMedium = 15 * time.Minute // sentiment, trending lists
	TTLLong   = 1 * time.Hour    // indicators, candles
	TTLDaily  = 24 * time.Hour   // fundamentals
)
