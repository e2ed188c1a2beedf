// Package kv defines the key-value store used to cache derived views, and a
// typed, expiring cache over it.
package kv

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// KV is a persistent store of JSON-encoded values under string keys.
//
// Get on a missing or expired key returns an error for which IsMiss reports
// true. Expired keys are also left out of ListKeys.
type KV interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any) error
	SetTTL(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	ListKeys(ctx context.Context) ([]string, error)
}

// IsMiss reports whether err means the key is absent or expired.
func IsMiss(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
