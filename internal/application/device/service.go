package device

import (
	"context"
	"fmt"

	"github.com/go-dating-api/internal/domain"
)

const (
	fieldPushToken = "push_token"
	fieldPlatform  = "platform"
)

type Service interface {
	List(ctx context.Context, userID string) ([]domain.Device, error)
	Update(ctx context.Context, userID, deviceID string, req domain.UpdateDeviceRequest) (*domain.Device, error)
	Delete(ctx context.Context, userID, deviceID string) error
}

type deviceStore interface {
	ListByUser(ctx context.Context, userID string) ([]domain.Device, error)
	Get(ctx context.Context, deviceID string) (*domain.Device, error)
	Update(ctx context.Context, deviceID string, updates map[string]any) error
	SoftDelete(ctx context.Context, deviceID string) error
}

type service struct {
	repo deviceStore
}

func NewService(repo deviceStore) Service {
	return &service{repo: repo}
}

func (s *service) List(ctx context.Context, userID string) ([]domain.Device, error) {
	devices, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := devices[:0]
	for _, d := range devices {
		if d.Enable {
			out = append(out, d)
		}
	}
	return out, nil
}

// owned loads deviceID and hides devices of other users behind ErrNotFound.
func (s *service) owned(ctx context.Context, userID, deviceID string) (*domain.Device, error) {
	d, err := s.repo.Get(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if d.UserID != userID || !d.Enable {
		return nil, fmt.Errorf("device %s: %w", deviceID, domain.ErrNotFound)
	}
	return d, nil
}

func (s *service) Update(ctx context.Context, userID, deviceID string, req domain.UpdateDeviceRequest) (*domain.Device, error) {
	d, err := s.owned(ctx, userID, deviceID)
	if err != nil {
		return nil, err
	}
	updates := map[string]any{}
	if req.PushToken != nil {
		updates[fieldPushToken] = *req.PushToken
	}
	if req.Platform != nil {
		updates[fieldPlatform] = *req.Platform
	}
	if len(updates) == 0 {
		return d, nil
	}
	if err := s.repo.Update(ctx, deviceID, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, deviceID)
}

func (s *service) Delete(ctx context.Context, userID, deviceID string) error {
	if _, err := s.owned(ctx, userID, deviceID); err != nil {
		return err
	}
	return s.repo.SoftDelete(ctx, deviceID)
}
