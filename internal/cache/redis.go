package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisPrefix = "yatube__page__"

// Redis - кэш страниц в Redis, все ключи лежат под общим префиксом.
type Redis struct {
	prefix      string
	redisClient *redis.Client
}

func NewRedis(options *redis.Options, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{
		prefix:      prefix,
		redisClient: redis.NewClient(options),
	}
}

func (c *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.redisClient.Get(ctx, c.getRedisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

func (c *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := c.redisClient.Set(ctx, c.getRedisKey(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *Redis) Invalidate(ctx context.Context) error {
	iter := c.redisClient.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.redisClient.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (c *Redis) Ping(ctx context.Context) error {
	return c.redisClient.Ping(ctx).Err()
}

func (c *Redis) Close() error {
	return c.redisClient.Close()
}

func (c *Redis) getRedisKey(key string) string {
	return c.prefix + key
}
