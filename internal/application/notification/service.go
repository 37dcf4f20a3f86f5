package notification

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/go-dating-api/internal/domain"
	"github.com/go-dating-api/internal/pkg/id"
)

const markAllConcurrency = 8

type Service interface {
	ListUnread(ctx context.Context, userID string) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, notificationID, userID string) (*domain.Notification, error)
	// MarkAllAsRead clears the user's unread list and returns how many
	// notifications it touched.
	MarkAllAsRead(ctx context.Context, userID string) (int, error)
	// Notify stores a new unread notification for userID.
	Notify(ctx context.Context, userID, kind, referenceID, message string) (*domain.Notification, error)
}

type notificationStore interface {
	Put(ctx context.Context, n *domain.Notification) error
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	ListUnread(ctx context.Context, userID string) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, notificationID string) error
}

type service struct {
	repo notificationStore
	now  func() time.Time
}

func NewService(repo notificationStore) Service {
	return &service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

func (s *service) ListUnread(ctx context.Context, userID string) ([]domain.Notification, error) {
	ns, err := s.repo.ListUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ns == nil {
		ns = []domain.Notification{}
	}
	return ns, nil
}

func (s *service) MarkAsRead(ctx context.Context, notificationID, userID string) (*domain.Notification, error) {
	n, err := s.repo.Get(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, fmt.Errorf("forbidden: %w", domain.ErrForbidden)
	}
	if n.Read == 1 {
		return n, nil
	}
	if err := s.repo.MarkAsRead(ctx, notificationID); err != nil {
		return nil, err
	}
	n.Read = 1
	n.UpdatedAt = s.now()
	return n, nil
}

func (s *service) MarkAllAsRead(ctx context.Context, userID string) (int, error) {
	ns, err := s.repo.ListUnread(ctx, userID)
	if err != nil {
		return 0, err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(markAllConcurrency)
	for _, n := range ns {
		g.Go(func() error {
			return s.repo.MarkAsRead(gctx, n.NotificationID)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return len(ns), nil
}

func (s *service) Notify(ctx context.Context, userID, kind, referenceID, message string) (*domain.Notification, error) {
	now := s.now()
	n := &domain.Notification{
		NotificationID: id.New(),
		UserID:         userID,
		Type:           kind,
		ReferenceID:    referenceID,
		Message:        message,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Put(ctx, n); err != nil {
		return nil, fmt.Errorf("store notification: %w", err)
	}
	return n, nil
}
