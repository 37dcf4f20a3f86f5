package domain

import (
	"strings"
	"time"
)

type Match struct {
	MatchID     string    `json:"id" dynamodbav:"match_id"`
	UserAID     string    `json:"user_a_id" dynamodbav:"user_a_id"`
	UserBID     string    `json:"user_b_id" dynamodbav:"user_b_id"`
	SuperLike   bool      `json:"superlike" dynamodbav:"superlike"`
	Active      bool      `json:"active" dynamodbav:"active"`
	UnmatchedBy string    `json:"unmatched_by,omitempty" dynamodbav:"unmatched_by,omitempty"`
	CreatedAt   time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt   time.Time `json:"updated" dynamodbav:"updated_at"`
}

const pairSeparator = "#"

// PairID returns the match id for two users. It is independent of argument
// order, so a mutual like can be written idempotently from either side.
func PairID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + pairSeparator + b
}

// NewMatch builds an active match between a and b with users ordered by id.
func NewMatch(a, b string, superLike bool, now time.Time) *Match {
	if b < a {
		a, b = b, a
	}
	return &Match{
		MatchID:   PairID(a, b),
		UserAID:   a,
		UserBID:   b,
		SuperLike: superLike,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Involves reports whether userID is one of the two participants.
func (m *Match) Involves(userID string) bool {
	return m.UserAID == userID || m.UserBID == userID
}

// Other returns the participant that is not userID.
func (m *Match) Other(userID string) string {
	if m.UserAID == userID {
		return m.UserBID
	}
	return m.UserAID
}

// SplitPairID is the inverse of PairID.
func SplitPairID(matchID string) (string, string, bool) {
	return strings.Cut(matchID, pairSeparator)
}

// MatchSummary is a match as listed to one of its participants.
type MatchSummary struct {
	Match       *Match         `json:"match"`
	Profile     *PublicProfile `json:"profile,omitempty"`
	LastMessage *Message       `json:"last_message,omitempty"`
	Unread      int            `json:"unread"`
}
