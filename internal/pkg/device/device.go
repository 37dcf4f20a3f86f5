package device

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-dating-api/internal/domain"
	"github.com/go-dating-api/internal/pkg/id"
)

// maxUUIDLen bounds client supplied installation ids.
const maxUUIDLen = 128

// Store is the slice of the device repository sign-in needs.
type Store interface {
	GetByUUID(ctx context.Context, uuid string) (*domain.Device, error)
	Put(ctx context.Context, d *domain.Device) error
}

// Resolve maps the installation id a client sent at sign-in to a Device of
// userID. A known device of the same user is reused, and re-enabled if the
// user had removed it. An id registered to someone else is never shared;
// the caller gets a new device with a server minted id instead.
func Resolve(ctx context.Context, repo Store, deviceUUID *string, userID string, now time.Time) (*domain.Device, error) {
	uuid := ""
	if deviceUUID != nil {
		uuid = strings.TrimSpace(*deviceUUID)
	}
	if len(uuid) > maxUUIDLen {
		return nil, fmt.Errorf("device uuid too long: %w", domain.ErrBadRequest)
	}
	if uuid != "" {
		d, err := repo.GetByUUID(ctx, uuid)
		switch {
		case err == nil && d.UserID == userID:
			if d.Enable {
				return d, nil
			}
			d.Enable = true
			d.UpdatedAt = now
			if err := repo.Put(ctx, d); err != nil {
				return nil, fmt.Errorf("re-enable device: %w", err)
			}
			return d, nil
		case err == nil:
			uuid = ""
		case !errors.Is(err, domain.ErrNotFound):
			return nil, err
		}
	}
	if uuid == "" {
		uuid = id.New()
	}
	d := &domain.Device{
		DeviceID:  id.New(),
		UUID:      uuid,
		UserID:    userID,
		Enable:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Put(ctx, d); err != nil {
		return nil, fmt.Errorf("store device: %w", err)
	}
	return d, nil
}
