package redisinfra

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// BoostStore keeps one expiring flag per boosted user.
type BoostStore struct {
	rdb *redis.Client
}

func NewBoostStore(rdb *redis.Client) *BoostStore {
	return &BoostStore{rdb: rdb}
}

func boostKey(userID string) string { return "boost:" + userID }

// Activate sets the boost for d. ok is false when one is already running.
func (b *BoostStore) Activate(ctx context.Context, userID string, d time.Duration, now time.Time) (expiresAt time.Time, ok bool, err error) {
	expiresAt = now.Add(d).UTC()
	ok, err = b.rdb.SetNX(ctx, boostKey(userID), expiresAt.Unix(), d).Result()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("activate boost: %w", err)
	}
	return expiresAt, ok, nil
}

// ExpiresAt returns the running boost's end, or the zero time when none.
func (b *BoostStore) ExpiresAt(ctx context.Context, userID string) (time.Time, error) {
	v, err := b.rdb.Get(ctx, boostKey(userID)).Int64()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read boost: %w", err)
	}
	return time.Unix(v, 0).UTC(), nil
}

// Boosted reports which of userIDs currently have a boost.
func (b *BoostStore) Boosted(ctx context.Context, userIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = boostKey(id)
	}
	vals, err := b.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("read boosts: %w", err)
	}
	for i, v := range vals {
		if s, ok := v.(string); ok {
			if _, err := strconv.ParseInt(s, 10, 64); err == nil {
				out[userIDs[i]] = true
			}
		}
	}
	return out, nil
}
