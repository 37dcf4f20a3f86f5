package swipe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/go-dating-api/internal/application/event"
	"github.com/go-dating-api/internal/domain"
	"github.com/go-dating-api/internal/pkg/logger"
)

type Service interface {
	// Swipe records actorID's decision on req.TargetID. Likes and superlikes
	// spend the daily allowance of the actor's plan; a positive swipe that
	// answers a positive swipe creates a match.
	Swipe(ctx context.Context, actorID string, req domain.SwipeRequest) (*domain.SwipeResult, error)
	// Quota reports today's like and superlike allowances.
	Quota(ctx context.Context, userID string) ([]domain.Quota, error)
}

type swipeStore interface {
	Create(ctx context.Context, s *domain.Swipe) error
	Get(ctx context.Context, actorID, targetID string) (*domain.Swipe, error)
}

type matchStore interface {
	Create(ctx context.Context, m *domain.Match) error
	Get(ctx context.Context, matchID string) (*domain.Match, error)
}

type profileStore interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
}

type quotaCounter interface {
	Consume(ctx context.Context, userID, kind string, limit int, now time.Time) (int, bool, error)
	Release(ctx context.Context, userID, kind string, now time.Time) error
	Used(ctx context.Context, userID, kind string, now time.Time) (int, error)
}

type entitlementSource interface {
	Entitlements(ctx context.Context, userID string) (domain.Plan, error)
}

type service struct {
	swipes    swipeStore
	matches   matchStore
	profiles  profileStore
	quotas    quotaCounter
	plans     entitlementSource
	publisher event.Publisher
	log       *logrus.Logger
	now       func() time.Time
}

type ServiceDeps struct {
	SwipeRepo   swipeStore
	MatchRepo   matchStore
	ProfileRepo profileStore
	Quotas      quotaCounter
	Plans       entitlementSource
	Publisher   event.Publisher
	Log         *logrus.Logger
}

func NewService(deps ServiceDeps) Service {
	log := deps.Log
	if log == nil {
		log = logger.Discard()
	}
	return &service{
		swipes:    deps.SwipeRepo,
		matches:   deps.MatchRepo,
		profiles:  deps.ProfileRepo,
		quotas:    deps.Quotas,
		plans:     deps.Plans,
		publisher: deps.Publisher,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func quotaKind(a domain.SwipeAction) string {
	if a == domain.SwipeSuperLike {
		return domain.QuotaSuperLikes
	}
	return domain.QuotaLikes
}

func (s *service) Swipe(ctx context.Context, actorID string, req domain.SwipeRequest) (*domain.SwipeResult, error) {
	if !req.Action.Valid() {
		return nil, fmt.Errorf("unknown action %q: %w", req.Action, domain.ErrBadRequest)
	}
	if req.TargetID == actorID {
		return nil, fmt.Errorf("cannot swipe yourself: %w", domain.ErrBadRequest)
	}
	target, err := s.profiles.Get(ctx, req.TargetID)
	if err != nil {
		return nil, err
	}
	if !target.Enable {
		return nil, fmt.Errorf("profile not found: %w", domain.ErrNotFound)
	}

	// A repeated swipe is a conflict even when the allowance is spent.
	_, err = s.swipes.Get(ctx, actorID, req.TargetID)
	switch {
	case err == nil:
		return nil, fmt.Errorf("already swiped: %w", domain.ErrConflict)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	now := s.now()
	result := &domain.SwipeResult{}
	kind := quotaKind(req.Action)
	if req.Action.Positive() {
		plan, err := s.plans.Entitlements(ctx, actorID)
		if err != nil {
			return nil, err
		}
		limit := plan.Entitlements.Limit(kind)
		used, ok, err := s.quotas.Consume(ctx, actorID, kind, limit, now)
		if err != nil {
			return nil, err
		}
		q := domain.NewQuota(kind, limit, used, domain.QuotaResetAt(now))
		if !ok {
			return nil, &domain.QuotaExceededError{Quota: q}
		}
		result.Quota = &q
	}

	sw := &domain.Swipe{ActorID: actorID, TargetID: req.TargetID, Action: req.Action, CreatedAt: now}
	if err := s.swipes.Create(ctx, sw); err != nil {
		if req.Action.Positive() {
			s.refund(ctx, actorID, kind, now)
		}
		return nil, err
	}
	result.Swipe = sw
	if !req.Action.Positive() {
		return result, nil
	}

	back, err := s.swipes.Get(ctx, req.TargetID, actorID)
	if errors.Is(err, domain.ErrNotFound) {
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	if !back.Action.Positive() {
		return result, nil
	}
	m, err := s.createMatch(ctx, sw, back, now)
	if err != nil {
		return nil, err
	}
	result.Matched = true
	result.Match = m
	return result, nil
}

// createMatch is idempotent: when both sides race, the conditional put lets
// one writer win and the other reads the stored match back.
func (s *service) createMatch(ctx context.Context, sw, back *domain.Swipe, now time.Time) (*domain.Match, error) {
	superLike := sw.Action == domain.SwipeSuperLike || back.Action == domain.SwipeSuperLike
	m := domain.NewMatch(sw.ActorID, sw.TargetID, superLike, now)
	err := s.matches.Create(ctx, m)
	if errors.Is(err, domain.ErrConflict) {
		return s.matches.Get(ctx, m.MatchID)
	}
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"match_id": m.MatchID, "superlike": superLike}).Info("match created")
	event.Emit(ctx, s.publisher, s.log, domain.EventMatchCreated, domain.MatchCreated{Match: m})
	return m, nil
}

func (s *service) refund(ctx context.Context, userID, kind string, now time.Time) {
	if err := s.quotas.Release(ctx, userID, kind, now); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"user_id": userID, "kind": kind}).Warn("refund quota")
	}
}

func (s *service) Quota(ctx context.Context, userID string) ([]domain.Quota, error) {
	plan, err := s.plans.Entitlements(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	reset := domain.QuotaResetAt(now)
	out := make([]domain.Quota, 0, 2)
	for _, kind := range []string{domain.QuotaLikes, domain.QuotaSuperLikes} {
		used, err := s.quotas.Used(ctx, userID, kind, now)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.NewQuota(kind, plan.Entitlements.Limit(kind), used, reset))
	}
	return out, nil
}
