package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/go-dating-api/internal/domain"
)

type mockNotificationStore struct{ mock.Mock }

func (m *mockNotificationStore) Put(ctx context.Context, n *domain.Notification) error {
	return m.Called(ctx, n).Error(0)
}
func (m *mockNotificationStore) Get(ctx context.Context, id string) (*domain.Notification, error) {
	args := m.Called(ctx, id)
	if n, _ := args.Get(0).(*domain.Notification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockNotificationStore) ListUnread(ctx context.Context, userID string) ([]domain.Notification, error) {
	args := m.Called(ctx, userID)
	ns, _ := args.Get(0).([]domain.Notification)
	return ns, args.Error(1)
}
func (m *mockNotificationStore) MarkAsRead(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func TestListUnread_EmptyIsNotNil(t *testing.T) {
	repo := &mockNotificationStore{}
	repo.On("ListUnread", mock.Anything, "u1").Return(nil, nil)

	ns, err := NewService(repo).ListUnread(context.Background(), "u1")

	require.NoError(t, err)
	assert.NotNil(t, ns)
	assert.Empty(t, ns)
}

func TestMarkAsRead_NotOwner(t *testing.T) {
	repo := &mockNotificationStore{}
	repo.On("Get", mock.Anything, "n1").Return(&domain.Notification{NotificationID: "n1", UserID: "u2"}, nil)

	_, err := NewService(repo).MarkAsRead(context.Background(), "n1", "u1")

	assert.True(t, errors.Is(err, domain.ErrForbidden))
	repo.AssertNotCalled(t, "MarkAsRead", mock.Anything, mock.Anything)
}

func TestMarkAsRead_Owner(t *testing.T) {
	repo := &mockNotificationStore{}
	repo.On("Get", mock.Anything, "n1").Return(&domain.Notification{NotificationID: "n1", UserID: "u1"}, nil)
	repo.On("MarkAsRead", mock.Anything, "n1").Return(nil)

	n, err := NewService(repo).MarkAsRead(context.Background(), "n1", "u1")

	require.NoError(t, err)
	assert.Equal(t, 1, n.Read)
	repo.AssertExpectations(t)
}

func TestMarkAsRead_NotFound(t *testing.T) {
	repo := &mockNotificationStore{}
	repo.On("Get", mock.Anything, "n1").Return(nil, domain.ErrNotFound)

	_, err := NewService(repo).MarkAsRead(context.Background(), "n1", "u1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestNotify_StoresUnread(t *testing.T) {
	repo := &mockNotificationStore{}
	repo.On("Put", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.UserID == "u1" && n.Type == domain.NotificationMatch && n.ReferenceID == "a#b" && n.Read == 0 && n.NotificationID != ""
	})).Return(nil)

	n, err := NewService(repo).Notify(context.Background(), "u1", domain.NotificationMatch, "a#b", "You have a new match")

	require.NoError(t, err)
	assert.Equal(t, "You have a new match", n.Message)
	repo.AssertExpectations(t)
}

func TestMarkAllAsRead(t *testing.T) {
	repo := &mockNotificationStore{}
	repo.On("ListUnread", mock.Anything, "u1").Return([]domain.Notification{
		{NotificationID: "n1"}, {NotificationID: "n2"}, {NotificationID: "n3"},
	}, nil)
	repo.On("MarkAsRead", mock.Anything, mock.AnythingOfType("string")).Return(nil)

	n, err := NewService(repo).MarkAllAsRead(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	repo.AssertNumberOfCalls(t, "MarkAsRead", 3)
}

func TestMarkAllAsRead_StoreFailure(t *testing.T) {
	repo := &mockNotificationStore{}
	repo.On("ListUnread", mock.Anything, "u1").Return([]domain.Notification{{NotificationID: "n1"}}, nil)
	repo.On("MarkAsRead", mock.Anything, "n1").Return(errors.New("throttled"))

	_, err := NewService(repo).MarkAllAsRead(context.Background(), "u1")
	assert.ErrorContains(t, err, "throttled")
}
