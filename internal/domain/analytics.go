package domain

import "time"

// Analytics is the admin dashboard summary.
type Analytics struct {
	GeneratedAt          time.Time                    `json:"generated_at"`
	Users                int64                        `json:"users"`
	VerifiedUsers        int64                        `json:"verified_users"`
	ActiveMatches        int64                        `json:"active_matches"`
	MatchesLast24h       int64                        `json:"matches_last_24h"`
	Messages             int64                        `json:"messages"`
	PendingVerifications int64                        `json:"pending_verifications"`
	SubscriptionsByPlan  map[PlanCode]int64           `json:"subscriptions_by_plan"`
	SubscriptionsByState map[SubscriptionStatus]int64 `json:"subscriptions_by_status"`
	MRRCents             int64                        `json:"mrr_cents"`
}
