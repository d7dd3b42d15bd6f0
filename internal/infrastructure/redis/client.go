package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	stderrors "errors"

	"github.com/redis/go-redis/v9"
)

var ErrKeyNotFound = stderrors.New("key not found")

// compareAndDelete removes KEYS[1] only while it still holds ARGV[1].
var compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisClient is the subset of Redis the acquirer uses: the quote cache and
// SETNX locks.
type RedisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
	DelIfEqual(ctx context.Context, key, value string) (bool, error)
	Close() error
}

type Client struct {
	client *redis.Client
}

// NewClient connects and pings addr.
func NewClient(ctx context.Context, addr string) (*Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		slog.Error("failed to connect to Redis", "addr", addr, "error", err)
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	slog.Info("connected to Redis", "addr", addr)
	return &Client{client: client}, nil
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, key).Result()
	if stderrors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	}
	return val, err
}

func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.client.Set(ctx, key, value, expiration).Err()
}

func (c *Client) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return c.client.SetNX(ctx, key, value, expiration).Result()
}

func (c *Client) Del(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// DelIfEqual deletes key atomically when its value is still value.
func (c *Client) DelIfEqual(ctx context.Context, key, value string) (bool, error) {
	n, err := compareAndDelete.Run(ctx, c.client, []string{key}, value).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
