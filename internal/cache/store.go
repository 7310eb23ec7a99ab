// Package cache holds the short-lived read cache of chat history.
package cache

import (
	"context"
	"time"
)

// Store is a string keyed byte cache with per-entry expiry.
type Store interface {
	// Get returns ok=false for absent or expired keys.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
