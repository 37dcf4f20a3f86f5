package discovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/go-dating-api/internal/domain"
)

type mockProfileStore struct{ mock.Mock }

func (m *mockProfileStore) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	args := m.Called(ctx, userID)
	if p, _ := args.Get(0).(*domain.Profile); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockProfileStore) ListEnabled(ctx context.Context) ([]domain.Profile, error) {
	args := m.Called(ctx)
	ps, _ := args.Get(0).([]domain.Profile)
	return ps, args.Error(1)
}

type mockSwipeStore struct{ mock.Mock }

func (m *mockSwipeStore) ListByActor(ctx context.Context, actorID string) ([]domain.Swipe, error) {
	args := m.Called(ctx, actorID)
	s, _ := args.Get(0).([]domain.Swipe)
	return s, args.Error(1)
}
func (m *mockSwipeStore) ListPositiveByTarget(ctx context.Context, targetID string) ([]domain.Swipe, error) {
	args := m.Called(ctx, targetID)
	s, _ := args.Get(0).([]domain.Swipe)
	return s, args.Error(1)
}

type mockMatchStore struct{ mock.Mock }

func (m *mockMatchStore) ListByUser(ctx context.Context, userID string, activeOnly bool) ([]domain.Match, error) {
	args := m.Called(ctx, userID, activeOnly)
	ms, _ := args.Get(0).([]domain.Match)
	return ms, args.Error(1)
}

type stubBoosts map[string]bool

func (b stubBoosts) Boosted(_ context.Context, ids []string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, id := range ids {
		if b[id] {
			out[id] = true
		}
	}
	return out, nil
}

type stubPlans struct{ plan domain.PlanCode }

func (s stubPlans) Entitlements(context.Context, string) (domain.Plan, error) {
	p, _ := domain.FindPlan(s.plan)
	return p, nil
}

var fixedNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func born(age int) time.Time { return fixedNow.AddDate(-age, -1, 0) }

func at(lat, lng float64) *domain.Location { return &domain.Location{Lat: lat, Lng: lng} }

func newSvc(ps *mockProfileStore, ss *mockSwipeStore, ms *mockMatchStore, boosts stubBoosts, plan domain.PlanCode) *service {
	svc := NewService(ServiceDeps{
		ProfileRepo: ps,
		SwipeRepo:   ss,
		MatchRepo:   ms,
		Boosts:      boosts,
		Plans:       stubPlans{plan: plan},
	}).(*service)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func ids(ps []domain.PublicProfile) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.UserID
	}
	return out
}

func TestCandidates_FiltersAndRanks(t *testing.T) {
	viewer := &domain.Profile{
		UserID:   "me",
		Location: at(0, 0),
		Preferences: domain.Preferences{
			InterestedIn:  []string{domain.GenderWoman},
			AgeMin:        20,
			AgeMax:        35,
			MaxDistanceKM: 100,
		},
	}
	base := func(id string) domain.Profile {
		return domain.Profile{UserID: id, Gender: domain.GenderWoman, Birthdate: born(28), Enable: true, UpdatedAt: fixedNow}
	}
	far := base("far")
	far.Location = at(5, 5)
	man := base("man")
	man.Gender = domain.GenderMan
	old := base("old")
	old.Birthdate = born(50)
	swiped := base("swiped")
	matched := base("matched")
	near := base("near")
	near.Location = at(0.1, 0)
	nearer := base("nearer")
	nearer.Location = at(0.05, 0)
	verified := base("verified")
	verified.Verified = true
	verified.Location = at(0.5, 0)
	boosted := base("boosted")
	noLocRecent := base("noloc-recent")
	noLocOld := base("noloc-old")
	noLocOld.UpdatedAt = fixedNow.Add(-time.Hour)

	ps := &mockProfileStore{}
	ss := &mockSwipeStore{}
	ms := &mockMatchStore{}
	ps.On("Get", mock.Anything, "me").Return(viewer, nil)
	ps.On("ListEnabled", mock.Anything).Return([]domain.Profile{
		*viewer, far, man, old, swiped, matched, noLocOld, near, nearer, verified, boosted, noLocRecent,
	}, nil)
	ss.On("ListByActor", mock.Anything, "me").Return([]domain.Swipe{{ActorID: "me", TargetID: "swiped"}}, nil)
	ms.On("ListByUser", mock.Anything, "me", false).Return([]domain.Match{{UserAID: "matched", UserBID: "me"}}, nil)

	got, err := newSvc(ps, ss, ms, stubBoosts{"boosted": true}, domain.PlanFree).Candidates(context.Background(), "me", 0)

	require.NoError(t, err)
	assert.Equal(t, []string{"boosted", "verified", "nearer", "near", "noloc-recent", "noloc-old"}, ids(got))
	assert.True(t, got[0].Boosted)
	require.NotNil(t, got[2].DistanceKM)
	assert.InDelta(t, 5.6, *got[2].DistanceKM, 0.1)
}

func TestCandidates_LimitClamped(t *testing.T) {
	var all []domain.Profile
	for i := 0; i < 80; i++ {
		all = append(all, domain.Profile{UserID: string(rune('A' + i)), Birthdate: born(30), Enable: true})
	}
	ps := &mockProfileStore{}
	ss := &mockSwipeStore{}
	ms := &mockMatchStore{}
	ps.On("Get", mock.Anything, "me").Return(&domain.Profile{UserID: "me"}, nil)
	ps.On("ListEnabled", mock.Anything).Return(all, nil)
	ss.On("ListByActor", mock.Anything, "me").Return(nil, nil)
	ms.On("ListByUser", mock.Anything, "me", false).Return(nil, nil)
	svc := newSvc(ps, ss, ms, stubBoosts{}, domain.PlanFree)

	got, err := svc.Candidates(context.Background(), "me", 500)
	require.NoError(t, err)
	assert.Len(t, got, MaxLimit)

	got, err = svc.Candidates(context.Background(), "me", 0)
	require.NoError(t, err)
	assert.Len(t, got, DefaultLimit)
}

func TestLikesReceived_RequiresGold(t *testing.T) {
	_, err := newSvc(nil, nil, nil, nil, domain.PlanPremium).LikesReceived(context.Background(), "me")
	assert.True(t, errors.Is(err, domain.ErrPaymentRequired))
}

func TestLikesReceived_SkipsAnswered(t *testing.T) {
	ps := &mockProfileStore{}
	ss := &mockSwipeStore{}
	ms := &mockMatchStore{}
	ss.On("ListPositiveByTarget", mock.Anything, "me").Return([]domain.Swipe{
		{ActorID: "a", TargetID: "me", CreatedAt: fixedNow.Add(-time.Hour)},
		{ActorID: "b", TargetID: "me", CreatedAt: fixedNow},
		{ActorID: "answered", TargetID: "me"},
	}, nil)
	ss.On("ListByActor", mock.Anything, "me").Return([]domain.Swipe{{TargetID: "answered"}}, nil)
	ms.On("ListByUser", mock.Anything, "me", false).Return(nil, nil)
	ps.On("Get", mock.Anything, "a").Return(&domain.Profile{UserID: "a", Enable: true}, nil)
	ps.On("Get", mock.Anything, "b").Return(&domain.Profile{UserID: "b", Enable: true}, nil)

	got, err := newSvc(ps, ss, ms, nil, domain.PlanGold).LikesReceived(context.Background(), "me")

	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ids(got))
}
