package cache

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const attemptKeyPrefix = "watchshop:login-attempts:"

// RedisAttemptCounter shares attempt counts between server instances.
type RedisAttemptCounter struct {
	client *redis.Client
}

func NewRedisAttemptCounter(addr string, password string, db int) *RedisAttemptCounter {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisAttemptCounter{client: client}
}

func (c *RedisAttemptCounter) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisAttemptCounter) Close() error {
	return c.client.Close()
}

func (c *RedisAttemptCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	key = attemptKeyPrefix + key

	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		ttl = pipe.TTL(ctx, key)
		return nil
	})
	if err != nil {
		return 0, err
	}
	// the window starts with the first attempt; a key left without a TTL gets
	// one on its next hit
	if ttl.Val() < 0 {
		if err := c.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, err
		}
	}
	return incr.Val(), nil
}

func (c *RedisAttemptCounter) Reset(ctx context.Context, key string) error {
	return c.client.Del(ctx, attemptKeyPrefix+key).Err()
}
