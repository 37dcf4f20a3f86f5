package redisinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/go-dating-api/internal/domain"
)

// DefaultPresenceTTL outlives two ping periods of a chat connection.
const DefaultPresenceTTL = 2 * time.Minute

// PresenceStore records which users hold a live chat connection.
// The online key expires unless refreshed, so a crashed instance cannot
// leave users online forever.
type PresenceStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPresenceStore(rdb *redis.Client, ttl time.Duration) *PresenceStore {
	return &PresenceStore{rdb: rdb, ttl: ttl}
}

func onlineKey(userID string) string   { return "presence:online:" + userID }
func lastSeenKey(userID string) string { return "presence:last_seen:" + userID }

// Touch marks userID online and refreshes the expiry.
func (p *PresenceStore) Touch(ctx context.Context, userID string, now time.Time) error {
	_, err := p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, onlineKey(userID), 1, p.ttl)
		pipe.Set(ctx, lastSeenKey(userID), now.UTC().Unix(), 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("touch presence: %w", err)
	}
	return nil
}

// Offline clears the online flag and stamps last seen.
func (p *PresenceStore) Offline(ctx context.Context, userID string, now time.Time) error {
	_, err := p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, onlineKey(userID))
		pipe.Set(ctx, lastSeenKey(userID), now.UTC().Unix(), 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("clear presence: %w", err)
	}
	return nil
}

func (p *PresenceStore) Get(ctx context.Context, userID string) (*domain.Presence, error) {
	n, err := p.rdb.Exists(ctx, onlineKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read presence: %w", err)
	}
	out := &domain.Presence{UserID: userID, Online: n == 1}
	ts, err := p.rdb.Get(ctx, lastSeenKey(userID)).Int64()
	switch {
	case err == redis.Nil:
	case err != nil:
		return nil, fmt.Errorf("read last seen: %w", err)
	default:
		t := time.Unix(ts, 0).UTC()
		out.LastSeen = &t
	}
	return out, nil
}
