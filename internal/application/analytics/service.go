// Package analytics computes the admin dashboard totals.
package analytics

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/go-dating-api/internal/domain"
)

type Service interface {
	Summary(ctx context.Context) (*domain.Analytics, error)
}

type userCounter interface {
	Count(ctx context.Context, verifiedOnly bool) (int64, error)
}

type matchCounter interface {
	CountActive(ctx context.Context, since time.Time) (int64, error)
	// CountCreatedSince includes matches that were unmatched afterwards.
	CountCreatedSince(ctx context.Context, since time.Time) (int64, error)
}

type messageCounter interface {
	Count(ctx context.Context) (int64, error)
}

type verificationCounter interface {
	CountByStatus(ctx context.Context, status domain.VerificationStatus) (int64, error)
}

type subscriptionLister interface {
	ListAll(ctx context.Context) ([]domain.Subscription, error)
}

type ServiceDeps struct {
	UserRepo         userCounter
	MatchRepo        matchCounter
	MessageRepo      messageCounter
	VerificationRepo verificationCounter
	SubscriptionRepo subscriptionLister
}

type service struct {
	deps ServiceDeps
	now  func() time.Time
}

func NewService(deps ServiceDeps) Service {
	return &service{deps: deps, now: func() time.Time { return time.Now().UTC() }}
}

// Summary runs every count concurrently. Each one is a table scan, so the
// first failure cancels the rest.
func (s *service) Summary(ctx context.Context) (*domain.Analytics, error) {
	now := s.now()
	out := &domain.Analytics{GeneratedAt: now}
	var subs []domain.Subscription

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Users, err = s.deps.UserRepo.Count(gctx, false)
		return wrap("users", err)
	})
	g.Go(func() (err error) {
		out.VerifiedUsers, err = s.deps.UserRepo.Count(gctx, true)
		return wrap("verified users", err)
	})
	g.Go(func() (err error) {
		out.ActiveMatches, err = s.deps.MatchRepo.CountActive(gctx, time.Time{})
		return wrap("active matches", err)
	})
	g.Go(func() (err error) {
		out.MatchesLast24h, err = s.deps.MatchRepo.CountCreatedSince(gctx, now.Add(-24*time.Hour))
		return wrap("recent matches", err)
	})
	g.Go(func() (err error) {
		out.Messages, err = s.deps.MessageRepo.Count(gctx)
		return wrap("messages", err)
	})
	g.Go(func() (err error) {
		out.PendingVerifications, err = s.deps.VerificationRepo.CountByStatus(gctx, domain.VerificationPending)
		return wrap("pending verifications", err)
	})
	g.Go(func() (err error) {
		subs, err = s.deps.SubscriptionRepo.ListAll(gctx)
		return wrap("subscriptions", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out.SubscriptionsByPlan = map[domain.PlanCode]int64{}
	out.SubscriptionsByState = map[domain.SubscriptionStatus]int64{}
	for i := range subs {
		sub := &subs[i]
		out.SubscriptionsByState[sub.Status]++
		if sub.GrantsAccessAt(now) {
			out.SubscriptionsByPlan[sub.Plan]++
		}
		if sub.Status == domain.SubscriptionActive && sub.GrantsAccessAt(now) {
			out.MRRCents += sub.MonthlyCents()
		}
	}
	return out, nil
}

func wrap(what string, err error) error {
	if err != nil {
		return fmt.Errorf("count %s: %w", what, err)
	}
	return nil
}
