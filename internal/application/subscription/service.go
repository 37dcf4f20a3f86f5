package subscription

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/go-dating-api/internal/application/event"
	"github.com/go-dating-api/internal/domain"
	"github.com/go-dating-api/internal/pkg/id"
	"github.com/go-dating-api/internal/pkg/logger"
	"github.com/go-dating-api/internal/pkg/pix"
)

const (
	fieldStatus    = "status"
	fieldStartsAt  = "starts_at"
	fieldExpiresAt = "expires_at"
	fieldAutoRenew = "auto_renew"

	txIDLen = 25
	qrSize  = 320
)

// Merchant identifies who receives PIX payments.
type Merchant struct {
	Key  string
	Name string
	City string
}

type Service interface {
	Plans() []domain.Plan
	Checkout(ctx context.Context, userID string, req domain.CheckoutRequest) (*domain.CheckoutResult, error)
	// ConfirmPayment settles the pending subscription carrying txid.
	ConfirmPayment(ctx context.Context, txid string) (*domain.Subscription, error)
	Cancel(ctx context.Context, userID string) (*domain.Subscription, error)
	Current(ctx context.Context, userID string) (*domain.CurrentSubscription, error)
	// Entitlements returns the plan userID is entitled to right now.
	Entitlements(ctx context.Context, userID string) (domain.Plan, error)
	ActivateBoost(ctx context.Context, userID string) (*domain.BoostStatus, error)
	BoostStatus(ctx context.Context, userID string) (*domain.BoostStatus, error)
	List(ctx context.Context, filter domain.SubscriptionFilter) ([]domain.Subscription, error)
	UpdateStatus(ctx context.Context, subscriptionID string, status domain.SubscriptionStatus) (*domain.Subscription, error)
}

type subscriptionStore interface {
	Put(ctx context.Context, s *domain.Subscription) error
	Get(ctx context.Context, subscriptionID string) (*domain.Subscription, error)
	GetByTxID(ctx context.Context, txid string) (*domain.Subscription, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Subscription, error)
	Update(ctx context.Context, subscriptionID string, updates map[string]any) error
	ListAll(ctx context.Context) ([]domain.Subscription, error)
}

type boostStore interface {
	Activate(ctx context.Context, userID string, d time.Duration, now time.Time) (time.Time, bool, error)
	ExpiresAt(ctx context.Context, userID string) (time.Time, error)
}

type quotaCounter interface {
	Consume(ctx context.Context, userID, kind string, limit int, now time.Time) (int, bool, error)
	Release(ctx context.Context, userID, kind string, now time.Time) error
}

type service struct {
	repo          subscriptionStore
	boosts        boostStore
	quotas        quotaCounter
	publisher     event.Publisher
	merchant      Merchant
	boostDuration time.Duration
	log           *logrus.Logger
	now           func() time.Time
}

type ServiceDeps struct {
	SubscriptionRepo subscriptionStore
	Boosts           boostStore
	Quotas           quotaCounter
	Publisher        event.Publisher
	Merchant         Merchant
	BoostDuration    time.Duration
	Log              *logrus.Logger
}

func NewService(deps ServiceDeps) Service {
	log := deps.Log
	if log == nil {
		log = logger.Discard()
	}
	return &service{
		repo:          deps.SubscriptionRepo,
		boosts:        deps.Boosts,
		quotas:        deps.Quotas,
		publisher:     deps.Publisher,
		merchant:      deps.Merchant,
		boostDuration: deps.BoostDuration,
		log:           log,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Plans() []domain.Plan { return domain.Plans }

// txIDFor derives the PIX txid from a subscription id. ULIDs are 26
// alphanumerics; the txid field holds 25, so the leading timestamp
// character is dropped.
func txIDFor(subscriptionID string) string {
	if len(subscriptionID) <= txIDLen {
		return subscriptionID
	}
	return subscriptionID[len(subscriptionID)-txIDLen:]
}

func (s *service) Checkout(ctx context.Context, userID string, req domain.CheckoutRequest) (*domain.CheckoutResult, error) {
	plan, ok := domain.FindPlan(req.Plan)
	if !ok || plan.Code == domain.PlanFree {
		return nil, fmt.Errorf("plan %q cannot be purchased: %w", req.Plan, domain.ErrBadRequest)
	}
	price, ok := plan.PriceCents[req.Period]
	if !ok {
		return nil, fmt.Errorf("period %q not offered for %s: %w", req.Period, plan.Code, domain.ErrBadRequest)
	}
	now := s.now()
	sub := &domain.Subscription{
		SubscriptionID: id.New(),
		UserID:         userID,
		Plan:           plan.Code,
		Period:         req.Period,
		Status:         domain.SubscriptionPending,
		AmountCents:    price,
		PaymentMethod:  domain.PaymentMethodPIX,
		AutoRenew:      true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	sub.PIXTxID = txIDFor(sub.SubscriptionID)
	payload, err := pix.Payload(pix.Charge{
		Key:          s.merchant.Key,
		MerchantName: s.merchant.Name,
		MerchantCity: s.merchant.City,
		AmountCents:  price,
		TxID:         sub.PIXTxID,
		Description:  plan.Name + " " + string(req.Period),
	})
	if err != nil {
		return nil, fmt.Errorf("build pix payload: %w", err)
	}
	sub.PIXPayload = payload
	png, err := qrcode.Encode(payload, qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("render qr code: %w", err)
	}
	if err := s.repo.Put(ctx, sub); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "subscription_id": sub.SubscriptionID, "plan": plan.Code}).Info("checkout created")
	return &domain.CheckoutResult{
		Subscription: sub,
		PIXPayload:   payload,
		QRCodePNG:    base64.StdEncoding.EncodeToString(png),
	}, nil
}

func (s *service) ConfirmPayment(ctx context.Context, txid string) (*domain.Subscription, error) {
	sub, err := s.repo.GetByTxID(ctx, txid)
	if err != nil {
		return nil, err
	}
	return s.activate(ctx, sub)
}

// activate moves a pending subscription to active and cancels any other
// subscription of the same user still granting access.
func (s *service) activate(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error) {
	if sub.Status == domain.SubscriptionActive {
		return sub, nil
	}
	if sub.Status != domain.SubscriptionPending {
		return nil, fmt.Errorf("subscription is %s: %w", sub.Status, domain.ErrConflict)
	}
	now := s.now()
	expires := now.AddDate(0, sub.Period.Months(), 0)
	if err := s.repo.Update(ctx, sub.SubscriptionID, map[string]any{
		fieldStatus:    domain.SubscriptionActive,
		fieldStartsAt:  now,
		fieldExpiresAt: expires,
	}); err != nil {
		return nil, err
	}
	sub.Status = domain.SubscriptionActive
	sub.StartsAt = &now
	sub.ExpiresAt = &expires
	sub.UpdatedAt = now

	others, err := s.repo.ListByUser(ctx, sub.UserID)
	if err != nil {
		return nil, err
	}
	for _, o := range others {
		if o.SubscriptionID == sub.SubscriptionID || o.Status != domain.SubscriptionActive {
			continue
		}
		if err := s.repo.Update(ctx, o.SubscriptionID, map[string]any{
			fieldStatus:    domain.SubscriptionCancelled,
			fieldAutoRenew: false,
			fieldExpiresAt: now,
		}); err != nil {
			return nil, err
		}
	}
	s.log.WithFields(logrus.Fields{"user_id": sub.UserID, "subscription_id": sub.SubscriptionID}).Info("subscription activated")
	event.Emit(ctx, s.publisher, s.log, domain.EventSubscriptionActivated, domain.SubscriptionActivated{Subscription: sub})
	return sub, nil
}

// effective returns the newest subscription granting access at now, or nil.
func (s *service) effective(ctx context.Context, userID string, now time.Time) (*domain.Subscription, error) {
	subs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(subs, func(i, j int) bool { return subs[i].CreatedAt.After(subs[j].CreatedAt) })
	for i := range subs {
		if subs[i].GrantsAccessAt(now) {
			return &subs[i], nil
		}
	}
	return nil, nil
}

func (s *service) Cancel(ctx context.Context, userID string) (*domain.Subscription, error) {
	sub, err := s.effective(ctx, userID, s.now())
	if err != nil {
		return nil, err
	}
	if sub == nil || sub.Status != domain.SubscriptionActive {
		return nil, fmt.Errorf("no active subscription: %w", domain.ErrNotFound)
	}
	if err := s.repo.Update(ctx, sub.SubscriptionID, map[string]any{
		fieldStatus:    domain.SubscriptionCancelled,
		fieldAutoRenew: false,
	}); err != nil {
		return nil, err
	}
	sub.Status = domain.SubscriptionCancelled
	sub.AutoRenew = false
	return sub, nil
}

func (s *service) Entitlements(ctx context.Context, userID string) (domain.Plan, error) {
	free, _ := domain.FindPlan(domain.PlanFree)
	sub, err := s.effective(ctx, userID, s.now())
	if err != nil {
		return free, err
	}
	if sub == nil {
		return free, nil
	}
	plan, ok := domain.FindPlan(sub.Plan)
	if !ok {
		return free, nil
	}
	return plan, nil
}

func (s *service) Current(ctx context.Context, userID string) (*domain.CurrentSubscription, error) {
	now := s.now()
	sub, err := s.effective(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	plan, _ := domain.FindPlan(domain.PlanFree)
	if sub != nil {
		if p, ok := domain.FindPlan(sub.Plan); ok {
			plan = p
		}
	}
	boost, err := s.BoostStatus(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &domain.CurrentSubscription{Plan: plan, Subscription: sub, Boost: boost}, nil
}

func (s *service) ActivateBoost(ctx context.Context, userID string) (*domain.BoostStatus, error) {
	now := s.now()
	if exp, err := s.boosts.ExpiresAt(ctx, userID); err != nil {
		return nil, err
	} else if exp.After(now) {
		return nil, fmt.Errorf("boost already active: %w", domain.ErrConflict)
	}
	plan, err := s.Entitlements(ctx, userID)
	if err != nil {
		return nil, err
	}
	limit := plan.Entitlements.Limit(domain.QuotaBoosts)
	used, ok, err := s.quotas.Consume(ctx, userID, domain.QuotaBoosts, limit, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &domain.QuotaExceededError{Quota: domain.NewQuota(domain.QuotaBoosts, limit, used, domain.QuotaResetAt(now))}
	}
	expires, ok, err := s.boosts.Activate(ctx, userID, s.boostDuration, now)
	if err == nil && !ok {
		err = fmt.Errorf("boost already active: %w", domain.ErrConflict)
	}
	if err != nil {
		if rerr := s.quotas.Release(ctx, userID, domain.QuotaBoosts, now); rerr != nil {
			s.log.WithError(rerr).WithField("user_id", userID).Warn("release boost quota")
		}
		return nil, err
	}
	return boostStatus(expires, now), nil
}

func (s *service) BoostStatus(ctx context.Context, userID string) (*domain.BoostStatus, error) {
	exp, err := s.boosts.ExpiresAt(ctx, userID)
	if err != nil {
		return nil, err
	}
	return boostStatus(exp, s.now()), nil
}

func boostStatus(expires, now time.Time) *domain.BoostStatus {
	if !expires.After(now) {
		return &domain.BoostStatus{}
	}
	return &domain.BoostStatus{
		Active:    true,
		ExpiresAt: &expires,
		Remaining: int64(expires.Sub(now).Seconds()),
	}
}

func (s *service) List(ctx context.Context, filter domain.SubscriptionFilter) ([]domain.Subscription, error) {
	var (
		all []domain.Subscription
		err error
	)
	if filter.UserID != "" {
		all, err = s.repo.ListByUser(ctx, filter.UserID)
	} else {
		all, err = s.repo.ListAll(ctx)
	}
	if err != nil {
		return nil, err
	}
	out := make([]domain.Subscription, 0, len(all))
	for i := range all {
		if filter.Matches(&all[i]) {
			out = append(out, all[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// UpdateStatus is the admin override. Activating a pending subscription
// follows the same path as a confirmed payment.
func (s *service) UpdateStatus(ctx context.Context, subscriptionID string, status domain.SubscriptionStatus) (*domain.Subscription, error) {
	sub, err := s.repo.Get(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	switch status {
	case domain.SubscriptionActive:
		return s.activate(ctx, sub)
	case domain.SubscriptionCancelled, domain.SubscriptionExpired, domain.SubscriptionFailed:
	default:
		return nil, fmt.Errorf("invalid status %q: %w", status, domain.ErrBadRequest)
	}
	updates := map[string]any{fieldStatus: status, fieldAutoRenew: false}
	if status == domain.SubscriptionExpired {
		now := s.now()
		updates[fieldExpiresAt] = now
		sub.ExpiresAt = &now
	}
	if err := s.repo.Update(ctx, subscriptionID, updates); err != nil {
		return nil, err
	}
	sub.Status = status
	sub.AutoRenew = false
	return sub, nil
}
