package redisinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/go-dating-api/internal/domain"
)

// consumeScript increments the counter unless it already reached the limit
// (ARGV[1], negative means unlimited). The key expires at the next reset.
// Returns {allowed, count}.
var consumeScript = redis.NewScript(`
local limit = tonumber(ARGV[1])
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
if limit >= 0 and current >= limit then
  return {0, current}
end
current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return {1, current}
`)

var releaseScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
if current > 0 then
  return redis.call("DECR", KEYS[1])
end
return 0
`)

// QuotaCounter tracks per-user daily allowances. Days roll over at UTC midnight.
type QuotaCounter struct {
	rdb *redis.Client
}

func NewQuotaCounter(rdb *redis.Client) *QuotaCounter {
	return &QuotaCounter{rdb: rdb}
}

func quotaKey(kind, userID string, now time.Time) string {
	return fmt.Sprintf("quota:%s:%s:%s", kind, userID, now.UTC().Format(time.DateOnly))
}

// Consume takes one unit of kind for userID. ok is false when the limit was
// already reached; used is the count after the call.
func (q *QuotaCounter) Consume(ctx context.Context, userID, kind string, limit int, now time.Time) (used int, ok bool, err error) {
	ttl := domain.QuotaResetAt(now).Sub(now)
	res, err := consumeScript.Run(ctx, q.rdb, []string{quotaKey(kind, userID, now)}, limit, ttl.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("consume %s quota: %w", kind, err)
	}
	return int(res[1]), res[0] == 1, nil
}

// Release gives back one unit previously consumed today.
func (q *QuotaCounter) Release(ctx context.Context, userID, kind string, now time.Time) error {
	if err := releaseScript.Run(ctx, q.rdb, []string{quotaKey(kind, userID, now)}).Err(); err != nil {
		return fmt.Errorf("release %s quota: %w", kind, err)
	}
	return nil
}

// Used reports how many units of kind userID consumed today.
func (q *QuotaCounter) Used(ctx context.Context, userID, kind string, now time.Time) (int, error) {
	n, err := q.rdb.Get(ctx, quotaKey(kind, userID, now)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s quota: %w", kind, err)
	}
	return n, nil
}
