package subscription

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/go-dating-api/internal/domain"
	"github.com/go-dating-api/internal/pkg/pix"
)

type mockSubscriptionStore struct{ mock.Mock }

func (m *mockSubscriptionStore) Put(ctx context.Context, s *domain.Subscription) error {
	return m.Called(ctx, s).Error(0)
}
func (m *mockSubscriptionStore) Get(ctx context.Context, id string) (*domain.Subscription, error) {
	args := m.Called(ctx, id)
	if s, _ := args.Get(0).(*domain.Subscription); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSubscriptionStore) GetByTxID(ctx context.Context, txid string) (*domain.Subscription, error) {
	args := m.Called(ctx, txid)
	if s, _ := args.Get(0).(*domain.Subscription); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSubscriptionStore) ListByUser(ctx context.Context, userID string) ([]domain.Subscription, error) {
	args := m.Called(ctx, userID)
	subs, _ := args.Get(0).([]domain.Subscription)
	return subs, args.Error(1)
}
func (m *mockSubscriptionStore) Update(ctx context.Context, id string, updates map[string]any) error {
	return m.Called(ctx, id, updates).Error(0)
}
func (m *mockSubscriptionStore) ListAll(ctx context.Context) ([]domain.Subscription, error) {
	args := m.Called(ctx)
	subs, _ := args.Get(0).([]domain.Subscription)
	return subs, args.Error(1)
}

type mockBoostStore struct{ mock.Mock }

func (m *mockBoostStore) Activate(ctx context.Context, userID string, d time.Duration, now time.Time) (time.Time, bool, error) {
	args := m.Called(ctx, userID, d, now)
	return args.Get(0).(time.Time), args.Bool(1), args.Error(2)
}
func (m *mockBoostStore) ExpiresAt(ctx context.Context, userID string) (time.Time, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(time.Time), args.Error(1)
}

type mockQuotaCounter struct{ mock.Mock }

func (m *mockQuotaCounter) Consume(ctx context.Context, userID, kind string, limit int, now time.Time) (int, bool, error) {
	args := m.Called(ctx, userID, kind, limit, now)
	return args.Int(0), args.Bool(1), args.Error(2)
}
func (m *mockQuotaCounter) Release(ctx context.Context, userID, kind string, now time.Time) error {
	return m.Called(ctx, userID, kind, now).Error(0)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, e domain.Event) error {
	return m.Called(ctx, e).Error(0)
}

var fixedNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func newSvc(repo *mockSubscriptionStore, boosts *mockBoostStore, quotas *mockQuotaCounter, pub *mockPublisher) *service {
	svc := NewService(ServiceDeps{
		SubscriptionRepo: repo,
		Boosts:           boosts,
		Quotas:           quotas,
		Publisher:        pub,
		Merchant:         Merchant{Key: "pix@example.com", Name: "DATING APP", City: "SAO PAULO"},
		BoostDuration:    30 * time.Minute,
	}).(*service)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func activeSub(id string, plan domain.PlanCode, created time.Time) domain.Subscription {
	exp := fixedNow.AddDate(0, 1, 0)
	return domain.Subscription{SubscriptionID: id, UserID: "u1", Plan: plan, Status: domain.SubscriptionActive, ExpiresAt: &exp, CreatedAt: created}
}

func TestCheckout_FreePlanRejected(t *testing.T) {
	_, err := newSvc(nil, nil, nil, nil).Checkout(context.Background(), "u1", domain.CheckoutRequest{Plan: domain.PlanFree, Period: domain.PeriodMonthly})
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestCheckout_BuildsPIXAndQR(t *testing.T) {
	repo := &mockSubscriptionStore{}
	repo.On("Put", mock.Anything, mock.MatchedBy(func(s *domain.Subscription) bool {
		return s.Status == domain.SubscriptionPending && s.AmountCents == 4990 && len(s.PIXTxID) == txIDLen
	})).Return(nil)

	res, err := newSvc(repo, nil, nil, nil).Checkout(context.Background(), "u1", domain.CheckoutRequest{Plan: domain.PlanGold, Period: domain.PeriodMonthly})

	require.NoError(t, err)
	assert.True(t, pix.Valid(res.PIXPayload))
	assert.Contains(t, res.PIXPayload, "540549.90")
	png, err := base64.StdEncoding.DecodeString(res.QRCodePNG)
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(png[:4]))
	repo.AssertExpectations(t)
}

func TestConfirmPayment_ActivatesAndCancelsPrevious(t *testing.T) {
	repo := &mockSubscriptionStore{}
	pub := &mockPublisher{}
	pending := &domain.Subscription{SubscriptionID: "s2", UserID: "u1", Plan: domain.PlanGold, Period: domain.PeriodQuarterly, Status: domain.SubscriptionPending}
	repo.On("GetByTxID", mock.Anything, "tx").Return(pending, nil)
	repo.On("Update", mock.Anything, "s2", mock.MatchedBy(func(u map[string]any) bool {
		return u[fieldStatus] == domain.SubscriptionActive && u[fieldExpiresAt] == fixedNow.AddDate(0, 3, 0)
	})).Return(nil)
	repo.On("ListByUser", mock.Anything, "u1").Return([]domain.Subscription{
		activeSub("s1", domain.PlanPremium, fixedNow.Add(-time.Hour)),
		{SubscriptionID: "s2", Status: domain.SubscriptionPending},
	}, nil)
	repo.On("Update", mock.Anything, "s1", mock.MatchedBy(func(u map[string]any) bool {
		return u[fieldStatus] == domain.SubscriptionCancelled
	})).Return(nil)
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(e domain.Event) bool {
		return e.Type == domain.EventSubscriptionActivated
	})).Return(nil)

	sub, err := newSvc(repo, nil, nil, pub).ConfirmPayment(context.Background(), "tx")

	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionActive, sub.Status)
	repo.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestConfirmPayment_FailedSubscriptionConflicts(t *testing.T) {
	repo := &mockSubscriptionStore{}
	repo.On("GetByTxID", mock.Anything, "tx").Return(&domain.Subscription{SubscriptionID: "s1", Status: domain.SubscriptionFailed}, nil)

	_, err := newSvc(repo, nil, nil, nil).ConfirmPayment(context.Background(), "tx")
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestEntitlements(t *testing.T) {
	past := fixedNow.Add(-time.Hour)
	tests := []struct {
		name string
		subs []domain.Subscription
		want domain.PlanCode
	}{
		{"no subscription", nil, domain.PlanFree},
		{"active gold", []domain.Subscription{activeSub("s1", domain.PlanGold, past)}, domain.PlanGold},
		{"expired", []domain.Subscription{{Plan: domain.PlanGold, Status: domain.SubscriptionActive, ExpiresAt: &past}}, domain.PlanFree},
		{"cancelled keeps access", []domain.Subscription{func() domain.Subscription {
			s := activeSub("s1", domain.PlanPremium, past)
			s.Status = domain.SubscriptionCancelled
			return s
		}()}, domain.PlanPremium},
		{"pending ignored", []domain.Subscription{{Plan: domain.PlanGold, Status: domain.SubscriptionPending}}, domain.PlanFree},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &mockSubscriptionStore{}
			repo.On("ListByUser", mock.Anything, "u1").Return(tc.subs, nil)
			plan, err := newSvc(repo, nil, nil, nil).Entitlements(context.Background(), "u1")
			require.NoError(t, err)
			assert.Equal(t, tc.want, plan.Code)
		})
	}
}

func TestCancel_NoActive(t *testing.T) {
	repo := &mockSubscriptionStore{}
	repo.On("ListByUser", mock.Anything, "u1").Return([]domain.Subscription{}, nil)

	_, err := newSvc(repo, nil, nil, nil).Cancel(context.Background(), "u1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestActivateBoost_FreePlanHitsQuota(t *testing.T) {
	repo := &mockSubscriptionStore{}
	boosts := &mockBoostStore{}
	quotas := &mockQuotaCounter{}
	repo.On("ListByUser", mock.Anything, "u1").Return([]domain.Subscription{}, nil)
	boosts.On("ExpiresAt", mock.Anything, "u1").Return(time.Time{}, nil)
	quotas.On("Consume", mock.Anything, "u1", domain.QuotaBoosts, 0, fixedNow).Return(0, false, nil)

	_, err := newSvc(repo, boosts, quotas, nil).ActivateBoost(context.Background(), "u1")

	var qe *domain.QuotaExceededError
	require.True(t, errors.As(err, &qe))
	assert.True(t, errors.Is(err, domain.ErrQuotaExceeded))
	assert.Equal(t, domain.QuotaResetAt(fixedNow), qe.Quota.ResetAt)
	boosts.AssertNotCalled(t, "Activate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestActivateBoost_AlreadyActive(t *testing.T) {
	boosts := &mockBoostStore{}
	boosts.On("ExpiresAt", mock.Anything, "u1").Return(fixedNow.Add(10*time.Minute), nil)

	_, err := newSvc(nil, boosts, nil, nil).ActivateBoost(context.Background(), "u1")
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestActivateBoost_RaceReleasesQuota(t *testing.T) {
	repo := &mockSubscriptionStore{}
	boosts := &mockBoostStore{}
	quotas := &mockQuotaCounter{}
	repo.On("ListByUser", mock.Anything, "u1").Return([]domain.Subscription{activeSub("s1", domain.PlanGold, fixedNow)}, nil)
	boosts.On("ExpiresAt", mock.Anything, "u1").Return(time.Time{}, nil)
	quotas.On("Consume", mock.Anything, "u1", domain.QuotaBoosts, 3, fixedNow).Return(1, true, nil)
	boosts.On("Activate", mock.Anything, "u1", 30*time.Minute, fixedNow).Return(fixedNow.Add(30*time.Minute), false, nil)
	quotas.On("Release", mock.Anything, "u1", domain.QuotaBoosts, fixedNow).Return(nil)

	_, err := newSvc(repo, boosts, quotas, nil).ActivateBoost(context.Background(), "u1")
	assert.True(t, errors.Is(err, domain.ErrConflict))
	quotas.AssertExpectations(t)
}

func TestActivateBoost_Success(t *testing.T) {
	repo := &mockSubscriptionStore{}
	boosts := &mockBoostStore{}
	quotas := &mockQuotaCounter{}
	repo.On("ListByUser", mock.Anything, "u1").Return([]domain.Subscription{activeSub("s1", domain.PlanPremium, fixedNow)}, nil)
	boosts.On("ExpiresAt", mock.Anything, "u1").Return(time.Time{}, nil)
	quotas.On("Consume", mock.Anything, "u1", domain.QuotaBoosts, 1, fixedNow).Return(1, true, nil)
	boosts.On("Activate", mock.Anything, "u1", 30*time.Minute, fixedNow).Return(fixedNow.Add(30*time.Minute), true, nil)

	st, err := newSvc(repo, boosts, quotas, nil).ActivateBoost(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, st.Active)
	assert.Equal(t, int64(1800), st.Remaining)
}

func TestUpdateStatus_Invalid(t *testing.T) {
	repo := &mockSubscriptionStore{}
	repo.On("Get", mock.Anything, "s1").Return(&domain.Subscription{SubscriptionID: "s1"}, nil)

	_, err := newSvc(repo, nil, nil, nil).UpdateStatus(context.Background(), "s1", "bogus")
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestList_FiltersAndSorts(t *testing.T) {
	repo := &mockSubscriptionStore{}
	repo.On("ListAll", mock.Anything).Return([]domain.Subscription{
		{SubscriptionID: "old", Plan: domain.PlanGold, CreatedAt: fixedNow.Add(-2 * time.Hour)},
		{SubscriptionID: "prem", Plan: domain.PlanPremium, CreatedAt: fixedNow},
		{SubscriptionID: "new", Plan: domain.PlanGold, CreatedAt: fixedNow.Add(-time.Hour)},
	}, nil)

	got, err := newSvc(repo, nil, nil, nil).List(context.Background(), domain.SubscriptionFilter{Plan: domain.PlanGold})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].SubscriptionID)
}

func TestTxIDFor(t *testing.T) {
	assert.Equal(t, "1ARZ3NDEKTSV4RRFFQ69G5FAV", txIDFor("01ARZ3NDEKTSV4RRFFQ69G5FAV"))
	assert.Equal(t, "short", txIDFor("short"))
}
