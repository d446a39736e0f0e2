package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/TobiSchelling/catalog/internal/articles"
)

const redisKeyPrefix = "catalog:results:"

// Redis keeps slots in a Redis server, shared by every server instance.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to redisURL. A bare host:port is accepted as well as a
// redis:// URL.
func NewRedis(ctx context.Context, redisURL string) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{Addr: redisURL}
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return &Redis{client: client}, nil
}

// Close closes the connection.
func (c *Redis) Close() error {
	return c.client.Close()
}

// Get returns the result set stored under key. redis.Nil is reported as a
// miss.
func (c *Redis) Get(ctx context.Context, key string) ([]articles.Article, bool, error) {
	payload, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return decode(payload)
}

// Set overwrites the slot under key with data. Slots do not expire.
func (c *Redis) Set(ctx context.Context, key string, data []articles.Article) error {
	payload, err := encode(data)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, redisKeyPrefix+key, payload, 0).Err()
}

// Clear deletes the slot under key.
func (c *Redis) Clear(ctx context.Context, key string) error {
	return c.client.Del(ctx, redisKeyPrefix+key).Err()
}
