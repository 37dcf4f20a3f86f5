package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/go-dating-api/internal/domain"
	"github.com/go-dating-api/internal/infrastructure/google"
	pkgdevice "github.com/go-dating-api/internal/pkg/device"
	"github.com/go-dating-api/internal/pkg/id"
	pkgtoken "github.com/go-dating-api/internal/pkg/token"
)

type LoginRequest struct {
	Username   string  `json:"username" validate:"required"`
	Password   string  `json:"password" validate:"required"`
	DeviceUUID *string `json:"device_uuid"`
}

type GoogleLoginRequest struct {
	IDToken    string  `json:"id_token" validate:"required"`
	DeviceUUID *string `json:"device_uuid"`
}

// GooglePayload is the verified identity carried by a Google ID token.
type GooglePayload = google.Payload

type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	LoginWithGoogle(ctx context.Context, idToken string, deviceUUID *string) (*LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
	GetCurrent(ctx context.Context, sessionID string) (*domain.Session, error)
	Refresh(ctx context.Context, refreshToken string) (bearer, newRefreshToken string, err error)
	// Active lists the user's enabled sessions, current first.
	Active(ctx context.Context, userID, currentID string) ([]domain.Session, error)
	// LogoutOthers disables every session of userID but currentID.
	LogoutOthers(ctx context.Context, userID, currentID string) (int, error)
}

type userStore interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, userID string, updates map[string]any) error
}

type sessionStore interface {
	sessionWriter
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error)
	RotateRefreshToken(ctx context.Context, sessionID, newToken string, newExpiry int64) error
	Update(ctx context.Context, sessionID string, updates map[string]any) error
	ListByUser(ctx context.Context, userID string) ([]domain.Session, error)
	DisableByUser(ctx context.Context, userID, keep string) (int, error)
}

type profileStore interface {
	Put(ctx context.Context, p *domain.Profile) error
}

type googleVerifier interface {
	Verify(ctx context.Context, token string) (*GooglePayload, error)
}

type service struct {
	userRepo        userStore
	sessionRepo     sessionStore
	profileRepo     profileStore
	googleVerifier  googleVerifier
	issuer          *Issuer
	refreshTokenDur time.Duration
	now             func() time.Time
}

type ServiceDeps struct {
	UserRepo        userStore
	SessionRepo     sessionStore
	DeviceRepo      pkgdevice.Store
	ProfileRepo     profileStore
	JWTProvider     jwtSigner
	GoogleVerifier  googleVerifier
	RefreshTokenDur time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		userRepo:       deps.UserRepo,
		sessionRepo:    deps.SessionRepo,
		profileRepo:    deps.ProfileRepo,
		googleVerifier: deps.GoogleVerifier,
		issuer: &Issuer{
			Sessions:   deps.SessionRepo,
			Devices:    deps.DeviceRepo,
			JWT:        deps.JWTProvider,
			RefreshTTL: deps.RefreshTokenDur,
		},
		refreshTokenDur: deps.RefreshTokenDur,
		now:             time.Now,
	}
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	u, err := s.userRepo.GetByUsername(ctx, req.Username)
	if errors.Is(err, domain.ErrNotFound) {
		u, err = s.userRepo.GetByEmail(ctx, strings.ToLower(req.Username))
	}
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	if u.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if !u.Enabled() {
		return nil, fmt.Errorf("account disabled: %w", domain.ErrForbidden)
	}
	return s.issuer.Issue(ctx, u, req.DeviceUUID)
}

// LoginWithGoogle signs in with a Google ID token. Accounts are matched by
// email; a first Google sign-in links the Google subject to a self-registered
// account, and an unknown email creates a new account.
func (s *service) LoginWithGoogle(ctx context.Context, idToken string, deviceUUID *string) (*LoginResult, error) {
	p, err := s.googleVerifier.Verify(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("google sign-in: %w", domain.ErrUnauthorized)
	}
	if p.Sub == "" || p.Email == "" || !p.EmailVerified {
		return nil, fmt.Errorf("google account email not verified: %w", domain.ErrUnauthorized)
	}
	email := strings.ToLower(p.Email)

	u, err := s.userRepo.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		u, err = s.createGoogleUser(ctx, p, email)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if !u.Enabled() {
			return nil, fmt.Errorf("account disabled: %w", domain.ErrUnauthorized)
		}
		if err := s.linkGoogle(ctx, u, p.Sub); err != nil {
			return nil, err
		}
	}
	return s.issuer.Issue(ctx, u, deviceUUID)
}

func (s *service) linkGoogle(ctx context.Context, u *domain.User, sub string) error {
	if u.GoogleSub == sub {
		return nil
	}
	if u.GoogleSub != "" {
		return fmt.Errorf("email linked to another google account: %w", domain.ErrUnauthorized)
	}
	// Accounts without a password were provisioned by an admin; they must
	// not be claimable through a Google account.
	if u.PasswordHash == "" {
		return fmt.Errorf("account cannot be linked: %w", domain.ErrUnauthorized)
	}
	if err := s.userRepo.Update(ctx, u.UserID, map[string]any{
		"google_sub":      sub,
		"email_confirmed": true,
	}); err != nil {
		return err
	}
	u.GoogleSub = sub
	u.EmailConfirmed = true
	return nil
}

func (s *service) createGoogleUser(ctx context.Context, p *GooglePayload, email string) (*domain.User, error) {
	username, err := s.deriveUsername(ctx, email)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:         id.New(),
		Username:       username,
		Email:          email,
		Role:           domain.RoleUser,
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		EmailConfirmed: true,
		AuthProvider:   domain.AuthProviderGoogle,
		GoogleSub:      p.Sub,
		Enable:         1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.userRepo.Put(ctx, u); err != nil {
		return nil, err
	}
	if s.profileRepo != nil {
		if err := s.profileRepo.Put(ctx, domain.NewProfile(u, "", now)); err != nil {
			return nil, fmt.Errorf("create profile: %w", err)
		}
	}
	return u, nil
}

const maxUsernameSuffix = 99

// deriveUsername picks a free username from the local part of email,
// appending 1..99 on collision.
func (s *service) deriveUsername(ctx context.Context, email string) (string, error) {
	local, _, _ := strings.Cut(email, "@")
	base := sanitizeUsername(local)
	if base == "" {
		base = "user"
	}
	for i := 0; i <= maxUsernameSuffix; i++ {
		candidate := base
		if i > 0 {
			candidate = fmt.Sprintf("%s%d", base, i)
		}
		_, err := s.userRepo.GetByUsername(ctx, candidate)
		if errors.Is(err, domain.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("no free username for %s: %w", base, domain.ErrConflict)
}

// sanitizeUsername lower-cases name and keeps letters, digits, dots and underscores.
func sanitizeUsername(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (s *service) Logout(ctx context.Context, sessionID string) error {
	return s.sessionRepo.Update(ctx, sessionID, map[string]any{"enable": false})
}

func (s *service) GetCurrent(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := s.sessionRepo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Enable {
		return nil, fmt.Errorf("session expired: %w", domain.ErrUnauthorized)
	}
	u, err := s.userRepo.Get(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	sess.User = u
	return sess, nil
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (string, string, error) {
	sess, err := s.sessionRepo.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		return "", "", fmt.Errorf("invalid refresh token: %w", domain.ErrUnauthorized)
	}
	now := s.now()
	if sess.RefreshExpiresAt < now.Unix() {
		return "", "", fmt.Errorf("refresh token expired: %w", domain.ErrUnauthorized)
	}
	u, err := s.userRepo.Get(ctx, sess.UserID)
	if err != nil {
		return "", "", err
	}
	if !u.Enabled() {
		return "", "", fmt.Errorf("account disabled: %w", domain.ErrUnauthorized)
	}
	newToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return "", "", err
	}
	newExpiry := now.Add(s.refreshTokenDur).Unix()
	if err := s.sessionRepo.RotateRefreshToken(ctx, sess.SessionID, newToken, newExpiry); err != nil {
		return "", "", err
	}
	bearer, err := s.issuer.JWT.Sign(u.UserID, sess.DeviceID, u.Role, sess.SessionID)
	if err != nil {
		return "", "", err
	}
	return bearer, newToken, nil
}

func (s *service) Active(ctx context.Context, userID, currentID string) ([]domain.Session, error) {
	all, err := s.sessionRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	active := make([]domain.Session, 0, len(all))
	for _, sess := range all {
		if sess.Enable {
			active = append(active, sess)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		if (active[i].SessionID == currentID) != (active[j].SessionID == currentID) {
			return active[i].SessionID == currentID
		}
		return active[i].UpdatedAt.After(active[j].UpdatedAt)
	})
	return active, nil
}

func (s *service) LogoutOthers(ctx context.Context, userID, currentID string) (int, error) {
	if currentID == "" {
		return 0, fmt.Errorf("no current session: %w", domain.ErrUnauthorized)
	}
	return s.sessionRepo.DisableByUser(ctx, userID, currentID)
}
