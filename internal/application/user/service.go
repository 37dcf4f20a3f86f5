package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/go-dating-api/internal/application/session"
	"github.com/go-dating-api/internal/domain"
	pkgdevice "github.com/go-dating-api/internal/pkg/device"
	"github.com/go-dating-api/internal/pkg/id"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldUsername     = "username"
	fieldEmail        = "email"
	fieldPhone        = "phone"
	fieldFirstName    = "first_name"
	fieldLastName     = "last_name"
	fieldBirthday     = "birthday"
	fieldRole         = "role"
	fieldEnable       = "enable"
	fieldPasswordHash = "password_hash"

	fieldProfileEnable    = "enable"
	fieldProfileName      = "name"
	fieldProfileBirthdate = "birthdate"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type Service interface {
	Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error)
	RegisterWithSession(ctx context.Context, req domain.CreateUserRequest) (*session.LoginResult, error)
	List(ctx context.Context, filter domain.UserFilter, limit int, cursor string) ([]domain.User, string, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, req domain.UpdateUserRequest) (*domain.User, error)
	Delete(ctx context.Context, userID string) error
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
}

type userStore interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.User, string, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]any) error
	SoftDelete(ctx context.Context, userID string) error
}

type profileStore interface {
	Put(ctx context.Context, p *domain.Profile) error
	Update(ctx context.Context, userID string, updates map[string]any) error
}

type sessionStore interface {
	Put(ctx context.Context, s *domain.Session) error
	SoftDeleteByUser(ctx context.Context, userID string) error
}

type jwtSigner interface {
	Sign(userID, deviceID, role, sessionID string) (string, error)
}

type service struct {
	repo        userStore
	profileRepo profileStore
	sessionRepo sessionStore
	issuer      *session.Issuer
}

type ServiceDeps struct {
	UserRepo        userStore
	ProfileRepo     profileStore
	SessionRepo     sessionStore
	DeviceRepo      pkgdevice.Store
	JWTProvider     jwtSigner
	RefreshTokenDur time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:        deps.UserRepo,
		profileRepo: deps.ProfileRepo,
		sessionRepo: deps.SessionRepo,
		issuer: &session.Issuer{
			Sessions:   deps.SessionRepo,
			Devices:    deps.DeviceRepo,
			JWT:        deps.JWTProvider,
			RefreshTTL: deps.RefreshTokenDur,
		},
	}
}

func parseBirthday(s string, now time.Time) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("birthday must be in YYYY-MM-DD format: %w", domain.ErrBadRequest)
	}
	if domain.AgeAt(t, now) < domain.MinimumAge {
		return time.Time{}, fmt.Errorf("must be at least %d years old: %w", domain.MinimumAge, domain.ErrBadRequest)
	}
	return t, nil
}

func (s *service) Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.ensureFree(ctx, req.Username, email); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	birthday, err := parseBirthday(req.Birthday, now)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		UserID:       id.New(),
		Username:     req.Username,
		Email:        email,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Birthday:     birthday,
		Role:         domain.RoleUser,
		AuthProvider: domain.AuthProviderLocal,
		Enable:       1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Put(ctx, u); err != nil {
		return nil, err
	}
	if err := s.profileRepo.Put(ctx, domain.NewProfile(u, req.Gender, now)); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return u, nil
}

func (s *service) ensureFree(ctx context.Context, username, email string) error {
	if username != "" {
		_, err := s.repo.GetByUsername(ctx, username)
		if err == nil {
			return fmt.Errorf("username already taken: %w", domain.ErrConflict)
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}
	if email != "" {
		_, err := s.repo.GetByEmail(ctx, email)
		if err == nil {
			return fmt.Errorf("email already registered: %w", domain.ErrConflict)
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}
	return nil
}

func (s *service) RegisterWithSession(ctx context.Context, req domain.CreateUserRequest) (*session.LoginResult, error) {
	u, err := s.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.issuer.Issue(ctx, u, req.DeviceUUID)
}

// List scans one page of users and keeps those matching filter, so a page
// may hold fewer than limit users while the cursor is still non-empty.
func (s *service) List(ctx context.Context, filter domain.UserFilter, limit int, cursor string) ([]domain.User, string, error) {
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	users, next, err := s.repo.ScanPage(ctx, int32(limit), cursor)
	if err != nil {
		return nil, "", err
	}
	out := make([]domain.User, 0, len(users))
	for i := range users {
		if filter.Matches(&users[i]) {
			out = append(out, users[i])
		}
	}
	return out, next, nil
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}

func (s *service) Update(ctx context.Context, userID string, req domain.UpdateUserRequest) (*domain.User, error) {
	current, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	updates := map[string]any{}
	profileUpdates := map[string]any{}
	if req.Username != nil && *req.Username != current.Username {
		if err := s.ensureFree(ctx, *req.Username, ""); err != nil {
			return nil, err
		}
		updates[fieldUsername] = *req.Username
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != current.Email {
			if err := s.ensureFree(ctx, "", email); err != nil {
				return nil, err
			}
			updates[fieldEmail] = email
			updates["email_confirmed"] = false
		}
	}
	if req.Phone != nil {
		updates[fieldPhone] = *req.Phone
		updates["phone_confirmed"] = false
	}
	if req.FirstName != nil {
		updates[fieldFirstName] = *req.FirstName
		profileUpdates[fieldProfileName] = *req.FirstName
	}
	if req.LastName != nil {
		updates[fieldLastName] = *req.LastName
	}
	if req.Birthday != nil {
		t, err := parseBirthday(*req.Birthday, time.Now().UTC())
		if err != nil {
			return nil, err
		}
		updates[fieldBirthday] = t
		profileUpdates[fieldProfileBirthdate] = t
	}
	if req.Role != nil {
		switch *req.Role {
		case domain.RoleAdmin, domain.RoleUser:
			updates[fieldRole] = *req.Role
		default:
			return nil, fmt.Errorf("invalid role: %w", domain.ErrBadRequest)
		}
	}
	if req.Enable != nil {
		if *req.Enable != 0 && *req.Enable != 1 {
			return nil, fmt.Errorf("enable must be 0 or 1: %w", domain.ErrBadRequest)
		}
		updates[fieldEnable] = *req.Enable
		profileUpdates[fieldProfileEnable] = *req.Enable == 1
	}
	if len(updates) == 0 {
		return current, nil
	}
	if err := s.repo.Update(ctx, userID, updates); err != nil {
		return nil, err
	}
	if len(profileUpdates) > 0 {
		if err := s.profileRepo.Update(ctx, userID, profileUpdates); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	if req.Enable != nil && *req.Enable == 0 {
		if err := s.sessionRepo.SoftDeleteByUser(ctx, userID); err != nil {
			return nil, err
		}
	}
	return s.repo.Get(ctx, userID)
}

// Delete disables the account, hides its profile from discovery and ends
// every session.
func (s *service) Delete(ctx context.Context, userID string) error {
	if err := s.repo.SoftDelete(ctx, userID); err != nil {
		return err
	}
	if err := s.profileRepo.Update(ctx, userID, map[string]any{fieldProfileEnable: false}); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return s.sessionRepo.SoftDeleteByUser(ctx, userID)
}

func (s *service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(currentPassword)); err != nil {
		return fmt.Errorf("current password is incorrect: %w", domain.ErrUnauthorized)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.Update(ctx, userID, map[string]any{fieldPasswordHash: string(hash)})
}
