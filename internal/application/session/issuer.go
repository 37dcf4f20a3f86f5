package session

import (
	"context"
	"time"

	"github.com/go-dating-api/internal/domain"
	pkgdevice "github.com/go-dating-api/internal/pkg/device"
	"github.com/go-dating-api/internal/pkg/id"
	pkgtoken "github.com/go-dating-api/internal/pkg/token"
)

type sessionWriter interface {
	Put(ctx context.Context, s *domain.Session) error
}

type jwtSigner interface {
	Sign(userID, deviceID, role, sessionID string) (string, error)
}

// LoginResult is what every successful sign-in returns to the client.
type LoginResult struct {
	Bearer       string
	RefreshToken string
	Session      *domain.Session
}

// Issuer opens sessions. Registration, password recovery and the login
// flows all share it so tokens are minted in one place.
type Issuer struct {
	Sessions   sessionWriter
	Devices    pkgdevice.Store
	JWT        jwtSigner
	RefreshTTL time.Duration
}

// Issue resolves the device, stores a new session with a fresh refresh
// token and signs a bearer for u.
func (i *Issuer) Issue(ctx context.Context, u *domain.User, deviceUUID *string) (*LoginResult, error) {
	now := time.Now().UTC()
	dev, err := pkgdevice.Resolve(ctx, i.Devices, deviceUUID, u.UserID, now)
	if err != nil {
		return nil, err
	}
	refreshToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	sess := &domain.Session{
		SessionID:        id.New(),
		UserID:           u.UserID,
		DeviceID:         dev.DeviceID,
		Enable:           true,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: now.Add(i.RefreshTTL).Unix(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := i.Sessions.Put(ctx, sess); err != nil {
		return nil, err
	}
	bearer, err := i.JWT.Sign(u.UserID, dev.DeviceID, u.Role, sess.SessionID)
	if err != nil {
		return nil, err
	}
	sess.User = u
	return &LoginResult{Bearer: bearer, RefreshToken: refreshToken, Session: sess}, nil
}
