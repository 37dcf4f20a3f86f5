// Package redisinfra holds the Redis-backed counters and flags: daily swipe
// quotas, profile boosts and chat presence.
package redisinfra

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/go-dating-api/internal/config"
)

// NewClient connects to Redis and verifies the connection with PING.
func NewClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}
	return rdb, nil
}
