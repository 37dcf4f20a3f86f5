package swipe

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/go-dating-api/internal/domain"
)

type mockSwipeStore struct{ mock.Mock }

func (m *mockSwipeStore) Create(ctx context.Context, s *domain.Swipe) error {
	return m.Called(ctx, s).Error(0)
}
func (m *mockSwipeStore) Get(ctx context.Context, actorID, targetID string) (*domain.Swipe, error) {
	args := m.Called(ctx, actorID, targetID)
	if s, _ := args.Get(0).(*domain.Swipe); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockMatchStore struct{ mock.Mock }

func (m *mockMatchStore) Create(ctx context.Context, mt *domain.Match) error {
	return m.Called(ctx, mt).Error(0)
}
func (m *mockMatchStore) Get(ctx context.Context, matchID string) (*domain.Match, error) {
	args := m.Called(ctx, matchID)
	if mt, _ := args.Get(0).(*domain.Match); mt != nil {
		return mt, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockProfileStore struct{ mock.Mock }

func (m *mockProfileStore) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	args := m.Called(ctx, userID)
	if p, _ := args.Get(0).(*domain.Profile); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockQuotaCounter struct{ mock.Mock }

func (m *mockQuotaCounter) Consume(ctx context.Context, userID, kind string, limit int, now time.Time) (int, bool, error) {
	args := m.Called(ctx, userID, kind, limit, now)
	return args.Int(0), args.Bool(1), args.Error(2)
}
func (m *mockQuotaCounter) Release(ctx context.Context, userID, kind string, now time.Time) error {
	return m.Called(ctx, userID, kind, now).Error(0)
}
func (m *mockQuotaCounter) Used(ctx context.Context, userID, kind string, now time.Time) (int, error) {
	args := m.Called(ctx, userID, kind, now)
	return args.Int(0), args.Error(1)
}

type stubPlans struct{ plan domain.PlanCode }

func (s stubPlans) Entitlements(context.Context, string) (domain.Plan, error) {
	p, _ := domain.FindPlan(s.plan)
	return p, nil
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, e domain.Event) error {
	return m.Called(ctx, e).Error(0)
}

var fixedNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	swipes   *mockSwipeStore
	matches  *mockMatchStore
	profiles *mockProfileStore
	quotas   *mockQuotaCounter
	pub      *mockPublisher
	svc      *service
}

func newFixture(plan domain.PlanCode) *fixture {
	f := &fixture{
		swipes:   &mockSwipeStore{},
		matches:  &mockMatchStore{},
		profiles: &mockProfileStore{},
		quotas:   &mockQuotaCounter{},
		pub:      &mockPublisher{},
	}
	f.svc = NewService(ServiceDeps{
		SwipeRepo:   f.swipes,
		MatchRepo:   f.matches,
		ProfileRepo: f.profiles,
		Quotas:      f.quotas,
		Plans:       stubPlans{plan: plan},
		Publisher:   f.pub,
	}).(*service)
	f.svc.now = func() time.Time { return fixedNow }
	f.profiles.On("Get", mock.Anything, "bob").Return(&domain.Profile{UserID: "bob", Enable: true}, nil)
	return f
}

// unswiped records that actor has not swiped target yet.
func (f *fixture) unswiped(actor, target string) *fixture {
	f.swipes.On("Get", mock.Anything, actor, target).Return(nil, fmt.Errorf("swipe: %w", domain.ErrNotFound))
	return f
}

func TestSwipe_Self(t *testing.T) {
	f := newFixture(domain.PlanFree)
	_, err := f.svc.Swipe(context.Background(), "bob", domain.SwipeRequest{TargetID: "bob", Action: domain.SwipeLike})
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestSwipe_UnknownAction(t *testing.T) {
	f := newFixture(domain.PlanFree)
	_, err := f.svc.Swipe(context.Background(), "ana", domain.SwipeRequest{TargetID: "bob", Action: "maybe"})
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestSwipe_UnknownTarget(t *testing.T) {
	f := newFixture(domain.PlanFree)
	f.profiles.On("Get", mock.Anything, "ghost").Return(nil, fmt.Errorf("profile: %w", domain.ErrNotFound))

	_, err := f.svc.Swipe(context.Background(), "ana", domain.SwipeRequest{TargetID: "ghost", Action: domain.SwipeLike})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestSwipe_QuotaExhausted(t *testing.T) {
	f := newFixture(domain.PlanFree).unswiped("ana", "bob")
	f.quotas.On("Consume", mock.Anything, "ana", domain.QuotaLikes, 10, fixedNow).Return(10, false, nil)

	_, err := f.svc.Swipe(context.Background(), "ana", domain.SwipeRequest{TargetID: "bob", Action: domain.SwipeLike})

	var qe *domain.QuotaExceededError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, 10, qe.Quota.Limit)
	assert.Equal(t, 0, qe.Quota.Remaining)
	assert.Equal(t, time.Date(2026, 5, 11, 0, 0, 0, 0, time.UTC), qe.Quota.ResetAt)
	f.swipes.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSwipe_DislikeSkipsQuota(t *testing.T) {
	f := newFixture(domain.PlanFree).unswiped("ana", "bob")
	f.swipes.On("Create", mock.Anything, mock.Anything).Return(nil)

	res, err := f.svc.Swipe(context.Background(), "ana", domain.SwipeRequest{TargetID: "bob", Action: domain.SwipeDislike})

	require.NoError(t, err)
	assert.False(t, res.Matched)
	assert.Nil(t, res.Quota)
	f.quotas.AssertNotCalled(t, "Consume", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSwipe_DuplicateRaceRefundsQuota(t *testing.T) {
	f := newFixture(domain.PlanFree).unswiped("ana", "bob")
	f.quotas.On("Consume", mock.Anything, "ana", domain.QuotaSuperLikes, 1, fixedNow).Return(1, true, nil)
	f.swipes.On("Create", mock.Anything, mock.Anything).Return(fmt.Errorf("already swiped: %w", domain.ErrConflict))
	f.quotas.On("Release", mock.Anything, "ana", domain.QuotaSuperLikes, fixedNow).Return(nil)

	_, err := f.svc.Swipe(context.Background(), "ana", domain.SwipeRequest{TargetID: "bob", Action: domain.SwipeSuperLike})

	assert.True(t, errors.Is(err, domain.ErrConflict))
	f.quotas.AssertExpectations(t)
}

func TestSwipe_LikeWithoutReciprocation(t *testing.T) {
	f := newFixture(domain.PlanPremium).unswiped("ana", "bob")
	f.quotas.On("Consume", mock.Anything, "ana", domain.QuotaLikes, domain.Unlimited, fixedNow).Return(42, true, nil)
	f.swipes.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.swipes.On("Get", mock.Anything, "bob", "ana").Return(nil, domain.ErrNotFound)

	res, err := f.svc.Swipe(context.Background(), "ana", domain.SwipeRequest{TargetID: "bob", Action: domain.SwipeLike})

	require.NoError(t, err)
	assert.False(t, res.Matched)
	assert.Equal(t, domain.Unlimited, res.Quota.Remaining)
}

func TestSwipe_MutualLikeCreatesMatch(t *testing.T) {
	f := newFixture(domain.PlanFree).unswiped("ana", "bob")
	f.quotas.On("Consume", mock.Anything, "ana", domain.QuotaLikes, 10, fixedNow).Return(3, true, nil)
	f.swipes.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.swipes.On("Get", mock.Anything, "bob", "ana").Return(&domain.Swipe{ActorID: "bob", TargetID: "ana", Action: domain.SwipeSuperLike}, nil)
	f.matches.On("Create", mock.Anything, mock.MatchedBy(func(m *domain.Match) bool {
		return m.MatchID == "ana#bob" && m.SuperLike && m.Active
	})).Return(nil)
	f.pub.On("Publish", mock.Anything, mock.MatchedBy(func(e domain.Event) bool {
		return e.Type == domain.EventMatchCreated
	})).Return(nil)

	res, err := f.svc.Swipe(context.Background(), "ana", domain.SwipeRequest{TargetID: "bob", Action: domain.SwipeLike})

	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Equal(t, "ana#bob", res.Match.MatchID)
	assert.Equal(t, 7, res.Quota.Remaining)
	f.pub.AssertExpectations(t)
}

func TestSwipe_MatchRaceReadsExisting(t *testing.T) {
	f := newFixture(domain.PlanFree).unswiped("ana", "bob")
	existing := &domain.Match{MatchID: "ana#bob", Active: true}
	f.quotas.On("Consume", mock.Anything, "ana", domain.QuotaLikes, 10, fixedNow).Return(1, true, nil)
	f.swipes.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.swipes.On("Get", mock.Anything, "bob", "ana").Return(&domain.Swipe{Action: domain.SwipeLike}, nil)
	f.matches.On("Create", mock.Anything, mock.Anything).Return(domain.ErrConflict)
	f.matches.On("Get", mock.Anything, "ana#bob").Return(existing, nil)

	res, err := f.svc.Swipe(context.Background(), "ana", domain.SwipeRequest{TargetID: "bob", Action: domain.SwipeLike})

	require.NoError(t, err)
	assert.Same(t, existing, res.Match)
	f.pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestQuota_ReportsBothKinds(t *testing.T) {
	f := newFixture(domain.PlanFree)
	f.quotas.On("Used", mock.Anything, "ana", domain.QuotaLikes, fixedNow).Return(4, nil)
	f.quotas.On("Used", mock.Anything, "ana", domain.QuotaSuperLikes, fixedNow).Return(1, nil)

	qs, err := f.svc.Quota(context.Background(), "ana")

	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, 6, qs[0].Remaining)
	assert.Equal(t, 0, qs[1].Remaining)
}

func TestSwipe_DuplicateBeatsExhaustedQuota(t *testing.T) {
	f := newFixture(domain.PlanFree)
	f.swipes.On("Get", mock.Anything, "ana", "bob").Return(&domain.Swipe{ActorID: "ana", TargetID: "bob", Action: domain.SwipeLike}, nil)

	_, err := f.svc.Swipe(context.Background(), "ana", domain.SwipeRequest{TargetID: "bob", Action: domain.SwipeLike})

	assert.True(t, errors.Is(err, domain.ErrConflict))
	var qe *domain.QuotaExceededError
	assert.False(t, errors.As(err, &qe))
	f.quotas.AssertNotCalled(t, "Consume", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSwipe_LookupFailure(t *testing.T) {
	f := newFixture(domain.PlanFree)
	f.swipes.On("Get", mock.Anything, "ana", "bob").Return(nil, errors.New("throttled"))

	_, err := f.svc.Swipe(context.Background(), "ana", domain.SwipeRequest{TargetID: "bob", Action: domain.SwipeDislike})

	assert.EqualError(t, err, "throttled")
	f.swipes.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
