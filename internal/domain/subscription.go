package domain

import (
	"time"
)

type PlanCode string

const (
	PlanFree    PlanCode = "free"
	PlanPremium PlanCode = "premium"
	PlanGold    PlanCode = "gold"
)

type BillingPeriod string

const (
	PeriodMonthly   BillingPeriod = "monthly"
	PeriodQuarterly BillingPeriod = "quarterly"
	PeriodYearly    BillingPeriod = "yearly"
)

// Months is the length of the period in calendar months.
func (p BillingPeriod) Months() int {
	switch p {
	case PeriodMonthly:
		return 1
	case PeriodQuarterly:
		return 3
	case PeriodYearly:
		return 12
	}
	return 0
}

type Entitlements struct {
	DailyLikes      int  `json:"daily_likes"`
	DailySuperLikes int  `json:"daily_superlikes"`
	DailyBoosts     int  `json:"daily_boosts"`
	SeeWhoLikedYou  bool `json:"see_who_liked_you"`
}

// Limit returns the daily allowance for a quota kind.
func (e Entitlements) Limit(kind string) int {
	switch kind {
	case QuotaLikes:
		return e.DailyLikes
	case QuotaSuperLikes:
		return e.DailySuperLikes
	case QuotaBoosts:
		return e.DailyBoosts
	}
	return 0
}

type Plan struct {
	Code         PlanCode                `json:"code"`
	Name         string                  `json:"name"`
	PriceCents   map[BillingPeriod]int64 `json:"price_cents"`
	Entitlements Entitlements            `json:"entitlements"`
}

// Plans is the fixed catalog, cheapest first.
var Plans = []Plan{
	{
		Code:       PlanFree,
		Name:       "Free",
		PriceCents: map[BillingPeriod]int64{},
		Entitlements: Entitlements{
			DailyLikes: 10, DailySuperLikes: 1, DailyBoosts: 0,
		},
	},
	{
		Code: PlanPremium,
		Name: "Premium",
		PriceCents: map[BillingPeriod]int64{
			PeriodMonthly: 2990, PeriodQuarterly: 7490, PeriodYearly: 23990,
		},
		Entitlements: Entitlements{
			DailyLikes: Unlimited, DailySuperLikes: 5, DailyBoosts: 1,
		},
	},
	{
		Code: PlanGold,
		Name: "Gold",
		PriceCents: map[BillingPeriod]int64{
			PeriodMonthly: 4990, PeriodQuarterly: 12990, PeriodYearly: 39990,
		},
		Entitlements: Entitlements{
			DailyLikes: Unlimited, DailySuperLikes: 10, DailyBoosts: 3, SeeWhoLikedYou: true,
		},
	},
}

// FindPlan looks a plan up by code.
func FindPlan(code PlanCode) (Plan, bool) {
	for _, p := range Plans {
		if p.Code == code {
			return p, true
		}
	}
	return Plan{}, false
}

type SubscriptionStatus string

const (
	SubscriptionPending   SubscriptionStatus = "pending"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionFailed    SubscriptionStatus = "failed"
)

const PaymentMethodPIX = "pix"

type Subscription struct {
	SubscriptionID string             `json:"id" dynamodbav:"subscription_id"`
	UserID         string             `json:"user_id" dynamodbav:"user_id"`
	Plan           PlanCode           `json:"plan" dynamodbav:"plan"`
	Period         BillingPeriod      `json:"period" dynamodbav:"period"`
	Status         SubscriptionStatus `json:"status" dynamodbav:"status"`
	AmountCents    int64              `json:"amount_cents" dynamodbav:"amount_cents"`
	PaymentMethod  string             `json:"payment_method" dynamodbav:"payment_method"`
	PIXTxID        string             `json:"pix_txid,omitempty" dynamodbav:"pix_txid,omitempty"`
	PIXPayload     string             `json:"pix_payload,omitempty" dynamodbav:"pix_payload"`
	AutoRenew      bool               `json:"auto_renew" dynamodbav:"auto_renew"`
	StartsAt       *time.Time         `json:"starts_at,omitempty" dynamodbav:"starts_at,omitempty"`
	ExpiresAt      *time.Time         `json:"expires_at,omitempty" dynamodbav:"expires_at,omitempty"`
	CreatedAt      time.Time          `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time          `json:"updated" dynamodbav:"updated_at"`
}

// GrantsAccessAt reports whether s entitles its owner to the paid plan at now.
// A cancelled subscription keeps granting access until it expires.
func (s *Subscription) GrantsAccessAt(now time.Time) bool {
	if s.Status != SubscriptionActive && s.Status != SubscriptionCancelled {
		return false
	}
	return s.ExpiresAt != nil && now.Before(*s.ExpiresAt)
}

// MonthlyCents normalizes the subscription price to one month.
func (s *Subscription) MonthlyCents() int64 {
	m := s.Period.Months()
	if m == 0 {
		return 0
	}
	return s.AmountCents / int64(m)
}

type CheckoutRequest struct {
	Plan   PlanCode      `json:"plan" validate:"required,oneof=premium gold"`
	Period BillingPeriod `json:"period" validate:"required,oneof=monthly quarterly yearly"`
}

// CheckoutResult carries everything the client needs to render the PIX screen.
type CheckoutResult struct {
	Subscription *Subscription `json:"subscription"`
	PIXPayload   string        `json:"pix_payload"`
	QRCodePNG    string        `json:"qr_code_png"` // base64
}

// CurrentSubscription is the caller's effective plan.
type CurrentSubscription struct {
	Plan         Plan          `json:"plan"`
	Subscription *Subscription `json:"subscription,omitempty"`
	Boost        *BoostStatus  `json:"boost,omitempty"`
}

type UpdateSubscriptionRequest struct {
	Status SubscriptionStatus `json:"status" validate:"required,oneof=active cancelled expired failed"`
}

type SubscriptionFilter struct {
	Status SubscriptionStatus
	Plan   PlanCode
	UserID string
}

// Matches reports whether s satisfies every set criterion of f.
func (f SubscriptionFilter) Matches(s *Subscription) bool {
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.Plan != "" && s.Plan != f.Plan {
		return false
	}
	if f.UserID != "" && s.UserID != f.UserID {
		return false
	}
	return true
}

// BoostStatus describes a profile's visibility boost.
type BoostStatus struct {
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Remaining int64      `json:"remaining_seconds"`
}
