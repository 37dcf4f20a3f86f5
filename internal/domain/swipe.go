package domain

import "time"

type SwipeAction string

const (
	SwipeLike      SwipeAction = "like"
	SwipeDislike   SwipeAction = "dislike"
	SwipeSuperLike SwipeAction = "superlike"
)

// Valid reports whether a is one of the known actions.
func (a SwipeAction) Valid() bool {
	switch a {
	case SwipeLike, SwipeDislike, SwipeSuperLike:
		return true
	}
	return false
}

// Positive reports whether a expresses interest and can produce a match.
func (a SwipeAction) Positive() bool {
	return a == SwipeLike || a == SwipeSuperLike
}

// Swipe is keyed by (actor, target); an actor swipes a given target at most once.
type Swipe struct {
	ActorID   string      `json:"actor_id" dynamodbav:"actor_id"`
	TargetID  string      `json:"target_id" dynamodbav:"target_id"`
	Action    SwipeAction `json:"action" dynamodbav:"action"`
	CreatedAt time.Time   `json:"created" dynamodbav:"created_at"`
}

type SwipeRequest struct {
	TargetID string      `json:"target_id" validate:"required"`
	Action   SwipeAction `json:"action" validate:"required,oneof=like dislike superlike"`
}

type SwipeResult struct {
	Swipe   *Swipe `json:"swipe"`
	Matched bool   `json:"matched"`
	Match   *Match `json:"match,omitempty"`
	Quota   *Quota `json:"quota,omitempty"`
}

// Quota reports how much of a daily allowance is left. Limit -1 means unlimited.
type Quota struct {
	Kind      string    `json:"kind"`
	Limit     int       `json:"limit"`
	Used      int       `json:"used"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

const (
	QuotaLikes      = "likes"
	QuotaSuperLikes = "superlikes"
	QuotaBoosts     = "boosts"
)

// QuotaResetAt is the instant the daily allowances for now's day renew.
// Days roll over at UTC midnight.
func QuotaResetAt(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}

// Unlimited marks an allowance without a cap.
const Unlimited = -1

// NewQuota builds a Quota from a limit and a used count.
func NewQuota(kind string, limit, used int, resetAt time.Time) Quota {
	remaining := Unlimited
	if limit != Unlimited {
		remaining = limit - used
		if remaining < 0 {
			remaining = 0
		}
	}
	return Quota{Kind: kind, Limit: limit, Used: used, Remaining: remaining, ResetAt: resetAt}
}

// QuotaExceededError carries the allowance that was hit so the client can
// show a paywall with the reset time.
type QuotaExceededError struct {
	Quota Quota
}

func (e *QuotaExceededError) Error() string {
	return "daily " + e.Quota.Kind + " limit reached"
}

func (e *QuotaExceededError) Unwrap() error { return ErrQuotaExceeded }
