package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/go-dating-api/internal/domain"
	"github.com/go-dating-api/internal/infrastructure/rabbitmq"
)

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Notify(ctx context.Context, userID, kind, referenceID, message string) (*domain.Notification, error) {
	args := m.Called(ctx, userID, kind, referenceID, message)
	if n, _ := args.Get(0).(*domain.Notification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockUsers struct{ mock.Mock }

func (m *mockUsers) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockPresence struct{ mock.Mock }

func (m *mockPresence) Get(ctx context.Context, userID string) (*domain.Presence, error) {
	args := m.Called(ctx, userID)
	if p, _ := args.Get(0).(*domain.Presence); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(ctx context.Context, to, subject, body string) error {
	return m.Called(ctx, to, subject, body).Error(0)
}

type fixture struct {
	notes    *mockNotifier
	users    *mockUsers
	presence *mockPresence
	mail     *mockMailer
	w        *Worker
}

func newFixture() *fixture {
	f := &fixture{notes: &mockNotifier{}, users: &mockUsers{}, presence: &mockPresence{}, mail: &mockMailer{}}
	f.w = New(Deps{Notifications: f.notes, Users: f.users, Presence: f.presence, Mailer: f.mail})
	return f
}

func event(t *testing.T, typ string, payload any) domain.Event {
	t.Helper()
	e, err := domain.NewEvent(typ, payload)
	require.NoError(t, err)
	return e
}

func TestHandle_MatchNotifiesAndEmailsBothUsers(t *testing.T) {
	f := newFixture()
	m := &domain.Match{MatchID: "a#b", UserAID: "a", UserBID: "b", Active: true}
	f.users.On("Get", mock.Anything, "a").Return(&domain.User{UserID: "a", FirstName: "Ana", Email: "ana@example.com"}, nil)
	f.users.On("Get", mock.Anything, "b").Return(&domain.User{UserID: "b", FirstName: "Bia", Email: "bia@example.com"}, nil)
	f.notes.On("Notify", mock.Anything, "a", domain.NotificationMatch, "a#b", mock.Anything).Return(&domain.Notification{}, nil)
	f.notes.On("Notify", mock.Anything, "b", domain.NotificationMatch, "a#b", mock.Anything).Return(&domain.Notification{}, nil)
	f.mail.On("SendEmail", mock.Anything, "ana@example.com", mock.Anything, "You matched with Bia. Say hi!").Return(nil)
	f.mail.On("SendEmail", mock.Anything, "bia@example.com", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	err := f.w.Handle(context.Background(), event(t, domain.EventMatchCreated, domain.MatchCreated{Match: m}))

	require.NoError(t, err, "email failures do not fail the event")
	f.notes.AssertExpectations(t)
	f.mail.AssertExpectations(t)
}

func TestHandle_MessageSkipsOnlineRecipient(t *testing.T) {
	f := newFixture()
	f.presence.On("Get", mock.Anything, "b").Return(&domain.Presence{UserID: "b", Online: true}, nil)

	err := f.w.Handle(context.Background(), event(t, domain.EventMessageCreated, domain.MessageCreated{
		Message:     &domain.Message{MatchID: "a#b", SenderID: "a", Content: "hi"},
		RecipientID: "b",
	}))

	require.NoError(t, err)
	f.notes.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandle_MessageNotifiesOfflineRecipient(t *testing.T) {
	f := newFixture()
	f.presence.On("Get", mock.Anything, "b").Return(&domain.Presence{UserID: "b"}, nil)
	f.users.On("Get", mock.Anything, "a").Return(&domain.User{UserID: "a", FirstName: "Ana"}, nil)
	f.notes.On("Notify", mock.Anything, "b", domain.NotificationMessage, "a#b", "New message from Ana").Return(&domain.Notification{}, nil)

	err := f.w.Handle(context.Background(), event(t, domain.EventMessageCreated, domain.MessageCreated{
		Message:     &domain.Message{MatchID: "a#b", SenderID: "a"},
		RecipientID: "b",
	}))

	require.NoError(t, err)
	f.notes.AssertExpectations(t)
}

func TestHandle_StoreFailureRequeues(t *testing.T) {
	f := newFixture()
	f.notes.On("Notify", mock.Anything, "u1", domain.NotificationVerification, "v1", mock.Anything).Return(nil, errors.New("throttled"))

	err := f.w.Handle(context.Background(), event(t, domain.EventVerificationReviewed, domain.VerificationReviewed{
		Verification: &domain.PhotoVerification{VerificationID: "v1", UserID: "u1", Status: domain.VerificationApproved},
	}))

	require.Error(t, err)
	assert.False(t, errors.Is(err, rabbitmq.ErrDiscard))
}

func TestHandle_MalformedPayloadDiscarded(t *testing.T) {
	f := newFixture()
	err := f.w.Handle(context.Background(), domain.Event{Type: domain.EventSubscriptionActivated, Payload: []byte(`"nope"`)})
	assert.True(t, errors.Is(err, rabbitmq.ErrDiscard))

	err = f.w.Handle(context.Background(), domain.Event{Type: domain.EventMatchCreated, Payload: []byte(`{}`)})
	assert.True(t, errors.Is(err, rabbitmq.ErrDiscard))
}

func TestHandle_UnknownEventAcked(t *testing.T) {
	assert.NoError(t, newFixture().w.Handle(context.Background(), domain.Event{Type: "profile.viewed"}))
}

func TestHandle_SubscriptionActivated(t *testing.T) {
	f := newFixture()
	f.notes.On("Notify", mock.Anything, "u1", domain.NotificationSubscription, "s1", "Your gold plan is active.").Return(&domain.Notification{}, nil)
	f.users.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Email: "u1@example.com"}, nil)
	f.mail.On("SendEmail", mock.Anything, "u1@example.com", "Payment confirmed", mock.Anything).Return(nil)

	err := f.w.Handle(context.Background(), event(t, domain.EventSubscriptionActivated, domain.SubscriptionActivated{
		Subscription: &domain.Subscription{SubscriptionID: "s1", UserID: "u1", Plan: domain.PlanGold},
	}))

	require.NoError(t, err)
	f.mail.AssertExpectations(t)
}
