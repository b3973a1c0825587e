// Package cache keeps raw hh.ru response bodies in Redis so repeated runs
// inside the TTL do not hit the API again.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis implements scraper.Cache on a go-redis client.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

// New wraps rdb. Every key is stored under prefix, which may be empty.
func New(rdb *redis.Client, prefix string) *Redis {
	return &Redis{rdb: rdb, prefix: prefix}
}

// Get returns ok == false on a miss.
func (c *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	body, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis GET %s: %w", key, err)
	}
	return body, true, nil
}

func (c *Redis) Set(ctx context.Context, key string, body []byte, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, c.prefix+key, body, ttl).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", key, err)
	}
	return nil
}
