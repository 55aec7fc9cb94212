// Package broker implements the topic-keyed publish/subscribe fabric
// (C2) over a shared Redis backplane so a publish on one process
// reaches subscribers on every process.
package broker

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Client wraps the Redis client with application-specific
// configuration. A single shared client is reused across the broker
// for connection pooling.
type Client struct {
	*redis.Client
}

// NewClient creates a new Client from a redis:// URL.
func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Client{Client: redis.NewClient(opts)}, nil
}

// Ping verifies the connection to Redis. Call on startup to fail fast.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}
