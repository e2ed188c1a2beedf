package kv

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Cache stores values of one type under a key namespace. Every Put expires
// after the cache's TTL; a zero TTL keeps entries until evicted.
type Cache[T any] struct {
	store  KV
	prefix string
	ttl    time.Duration
}

// NewCache returns a cache whose keys are stored as "namespace:key".
func NewCache[T any](store KV, namespace string, ttl time.Duration) *Cache[T] {
	return &Cache[T]{
		store:  store,
		prefix: namespace + ":",
		ttl:    ttl,
	}
}

// TTL returns how long a Put stays visible.
func (c *Cache[T]) TTL() time.Duration { return c.ttl }

// Lookup returns the cached value of key. A missing or expired key reports
// false with a nil error.
func (c *Cache[T]) Lookup(ctx context.Context, key string) (T, bool, error) {
	var v T
	err := c.store.Get(ctx, c.prefix+key, &v)
	switch {
	case err == nil:
		return v, true, nil
	case IsMiss(err):
		return v, false, nil
	default:
		return v, false, fmt.Errorf("cache lookup %s: %w", key, err)
	}
}

// Put replaces the cached value of key.
func (c *Cache[T]) Put(ctx context.Context, key string, value T) error {
	if c.ttl <= 0 {
		return c.store.Set(ctx, c.prefix+key, value)
	}
	return c.store.SetTTL(ctx, c.prefix+key, value, c.ttl)
}

// Evict removes key. Evicting a missing key is not an error.
func (c *Cache[T]) Evict(ctx context.Context, key string) error {
	return c.store.Delete(ctx, c.prefix+key)
}

// Keys returns the live keys of the namespace without their prefix.
func (c *Cache[T]) Keys(ctx context.Context) ([]string, error) {
	all, err := c.store.ListKeys(ctx)
	if err != nil {
		return nil, err
	}

	var keys []string
	for _, k := range all {
		if rest, ok := strings.CutPrefix(k, c.prefix); ok {
			keys = append(keys, rest)
		}
	}
	return keys, nil
}
