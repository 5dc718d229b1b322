// Package redis provides a thin wrapper around go-redis/v9 with connection
// pooling and pipelined bulk writes.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/related-posts/pkg/config"
	"github.com/redis/go-redis/v9"
)

// pipelineChunk bounds the number of commands sent in one pipeline round trip.
const pipelineChunk = 1000

// Entry is a key/value pair written by SetMany.
type Entry struct {
	Key   string
	Value []byte
}

// Client wraps a go-redis client.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a Redis client and verifies the connection with a PING.
func NewClient(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

// SetMany stores every entry with the given TTL, pipelining the SETs in
// chunks. It stops at the first failed chunk.
func (c *Client) SetMany(ctx context.Context, entries []Entry, ttl time.Duration) error {
	for start := 0; start < len(entries); start += pipelineChunk {
		chunk := entries[start:min(start+pipelineChunk, len(entries))]
		_, err := c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, e := range chunk {
				pipe.Set(ctx, e.Key, e.Value, ttl)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("pipelined set at entry %d: %w", start, err)
		}
	}
	return nil
}

// Close closes the underlying Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping sends a PING to Redis and returns any error.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
