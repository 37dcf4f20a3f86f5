package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/go-dating-api/internal/domain"
)

type mockSubscriptionSvc struct{ mock.Mock }

func (m *mockSubscriptionSvc) Plans() []domain.Plan {
	plans, _ := m.Called().Get(0).([]domain.Plan)
	return plans
}
func (m *mockSubscriptionSvc) Checkout(ctx context.Context, userID string, req domain.CheckoutRequest) (*domain.CheckoutResult, error) {
	args := m.Called(ctx, userID, req)
	if res, _ := args.Get(0).(*domain.CheckoutResult); res != nil {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSubscriptionSvc) ConfirmPayment(ctx context.Context, txid string) (*domain.Subscription, error) {
	args := m.Called(ctx, txid)
	if s, _ := args.Get(0).(*domain.Subscription); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSubscriptionSvc) Cancel(ctx context.Context, userID string) (*domain.Subscription, error) {
	args := m.Called(ctx, userID)
	if s, _ := args.Get(0).(*domain.Subscription); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSubscriptionSvc) Current(ctx context.Context, userID string) (*domain.CurrentSubscription, error) {
	args := m.Called(ctx, userID)
	if c, _ := args.Get(0).(*domain.CurrentSubscription); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSubscriptionSvc) Entitlements(ctx context.Context, userID string) (domain.Plan, error) {
	args := m.Called(ctx, userID)
	p, _ := args.Get(0).(domain.Plan)
	return p, args.Error(1)
}
func (m *mockSubscriptionSvc) ActivateBoost(ctx context.Context, userID string) (*domain.BoostStatus, error) {
	args := m.Called(ctx, userID)
	if b, _ := args.Get(0).(*domain.BoostStatus); b != nil {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSubscriptionSvc) BoostStatus(ctx context.Context, userID string) (*domain.BoostStatus, error) {
	args := m.Called(ctx, userID)
	if b, _ := args.Get(0).(*domain.BoostStatus); b != nil {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSubscriptionSvc) List(ctx context.Context, filter domain.SubscriptionFilter) ([]domain.Subscription, error) {
	args := m.Called(ctx, filter)
	subs, _ := args.Get(0).([]domain.Subscription)
	return subs, args.Error(1)
}
func (m *mockSubscriptionSvc) UpdateStatus(ctx context.Context, subscriptionID string, status domain.SubscriptionStatus) (*domain.Subscription, error) {
	args := m.Called(ctx, subscriptionID, status)
	if s, _ := args.Get(0).(*domain.Subscription); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func webhookReq(secret string, body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/v1/webhooks/pix", bytes.NewBufferString(body))
	if secret != "" {
		r.Header.Set(WebhookSecretHeader, secret)
	}
	return r
}

func TestPIXWebhook_RejectsWrongSecret(t *testing.T) {
	svc := &mockSubscriptionSvc{}
	h := NewSubscriptionHandler(svc, "s3cret")

	for _, secret := range []string{"", "nope"} {
		rr := httptest.NewRecorder()
		h.PIXWebhook(rr, webhookReq(secret, `{"pix":[{"txid":"t1"}]}`))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	}
	svc.AssertNotCalled(t, "ConfirmPayment", mock.Anything, mock.Anything)
}

func TestPIXWebhook_DisabledWithoutSecret(t *testing.T) {
	h := NewSubscriptionHandler(&mockSubscriptionSvc{}, "")
	rr := httptest.NewRecorder()
	h.PIXWebhook(rr, webhookReq("anything", `{"pix":[{"txid":"t1"}]}`))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestPIXWebhook_SettlesKnownTxIDs(t *testing.T) {
	svc := &mockSubscriptionSvc{}
	svc.On("ConfirmPayment", mock.Anything, "t1").Return(&domain.Subscription{SubscriptionID: "s1", Status: domain.SubscriptionActive}, nil)
	svc.On("ConfirmPayment", mock.Anything, "t2").Return(nil, domain.ErrNotFound)
	h := NewSubscriptionHandler(svc, "s3cret")

	rr := httptest.NewRecorder()
	h.PIXWebhook(rr, webhookReq("s3cret", `{"pix":[{"txid":"t1","valor":"29.90"},{"txid":"t2","valor":"1.00"}]}`))

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]int
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, 1, body["settled"])
	svc.AssertExpectations(t)
}

func TestPIXWebhook_EmptyBatch(t *testing.T) {
	h := NewSubscriptionHandler(&mockSubscriptionSvc{}, "s3cret")
	rr := httptest.NewRecorder()
	h.PIXWebhook(rr, webhookReq("s3cret", `{"pix":[]}`))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestCheckout_FreePlanRejected(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockSubscriptionSvc{}
	h := NewSubscriptionHandler(svc, "")
	body, _ := json.Marshal(map[string]string{"plan": "free", "period": "monthly"})

	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Checkout), rr, bearerReq(t, p, http.MethodPost, "/v1/subscriptions/checkout", "u1", domain.RoleUser, body))

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	svc.AssertNotCalled(t, "Checkout", mock.Anything, mock.Anything, mock.Anything)
}

func TestActivateBoost_AlreadyBoosted(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockSubscriptionSvc{}
	svc.On("ActivateBoost", mock.Anything, "u1").Return(nil, domain.ErrConflict)
	h := NewSubscriptionHandler(svc, "")

	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.ActivateBoost), rr, bearerReq(t, p, http.MethodPost, "/v1/boost", "u1", domain.RoleUser, nil))

	assert.Equal(t, http.StatusConflict, rr.Code)
}
