package redis

import (
	"context"
	"time"
)

// Cache is the subset of redis the search core relies on. Get methods return
// Nil when the key is absent.
type Cache interface {
	SetBytes(ctx context.Context, key string, value []byte, exp time.Duration) error
	GetBytes(ctx context.Context, key string) ([]byte, error)

	SetString(ctx context.Context, key, value string, exp time.Duration) error
	GetString(ctx context.Context, key string) (string, error)

	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, keys ...string) (int64, error)
}
