package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Nil is returned by Get methods on a cache miss.
const Nil = redis.Nil

// Client adapts a go-redis client to Cache.
type Client struct {
	client redis.UniversalClient
}

var _ Cache = (*Client)(nil)

func New(client redis.UniversalClient) *Client {
	return &Client{client: client}
}

func (r *Client) SetBytes(ctx context.Context, key string, value []byte, exp time.Duration) error {
	return r.client.Set(ctx, key, value, exp).Err()
}

func (r *Client) GetBytes(ctx context.Context, key string) ([]byte, error) {
	return r.client.Get(ctx, key).Bytes()
}

func (r *Client) SetString(ctx context.Context, key, value string, exp time.Duration) error {
	return r.client.Set(ctx, key, value, exp).Err()
}

func (r *Client) GetString(ctx context.Context, key string) (string, error) {
	return r.client.Get(ctx, key).Result()
}

func (r *Client) Exists(ctx context.Context, key string) (bool, error) {
	count, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	return r.client.Del(ctx, keys...).Result()
}
