package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/go-dating-api/internal/application/session"
	"github.com/go-dating-api/internal/domain"
	pkgdevice "github.com/go-dating-api/internal/pkg/device"
	"github.com/go-dating-api/internal/pkg/logger"
	pkgtoken "github.com/go-dating-api/internal/pkg/token"
)

const (
	otpTTL        = 15 * time.Minute
	emailTokenTTL = 24 * time.Hour
	emailTokenLen = 32
)

type PasswordRecoveryRequest struct {
	Email string `json:"email" validate:"required,email"`
}

const fieldPasswordHash = "password_hash"

type ValidateOTPRequest struct {
	Email       string  `json:"email" validate:"required,email"`
	OTP         string  `json:"otp" validate:"required,len=6,numeric"`
	NewPassword string  `json:"new_password" validate:"required,min=8,max=72"`
	DeviceUUID  *string `json:"device_uuid"`
}

type ChangePasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

type Service interface {
	// RequestPasswordRecovery emails a reset code. It reports success whether
	// or not the address belongs to an account.
	RequestPasswordRecovery(ctx context.Context, req PasswordRecoveryRequest) error
	ValidateOTP(ctx context.Context, req ValidateOTPRequest) (*session.LoginResult, error)
	ChangePassword(ctx context.Context, userID, newPassword string) error
	RequestEmailConfirmation(ctx context.Context, userID string) error
	ValidateEmailToken(ctx context.Context, userID, token string) error
	RequestPhoneConfirmation(ctx context.Context, userID string) error
	ValidatePhoneOTP(ctx context.Context, userID, otp string) error
}

type codeStore interface {
	Put(ctx context.Context, c *domain.VerificationCode) error
	Get(ctx context.Context, userID, codeType string) (*domain.VerificationCode, error)
	Delete(ctx context.Context, userID, codeType string) error
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]any) error
}

type sessionStore interface {
	Put(ctx context.Context, s *domain.Session) error
	SoftDeleteByUser(ctx context.Context, userID string) error
}

type mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type jwtSigner interface {
	Sign(userID, deviceID, role, sessionID string) (string, error)
}

type service struct {
	codeRepo    codeStore
	userRepo    userStore
	sessionRepo sessionStore
	mailer      mailer
	smsSender   smsSender
	issuer      *session.Issuer
	log         *logrus.Logger
}

type ServiceDeps struct {
	CodeRepo        codeStore
	UserRepo        userStore
	SessionRepo     sessionStore
	DeviceRepo      pkgdevice.Store
	Mailer          mailer
	SMSSender       smsSender
	JWTProvider     jwtSigner
	RefreshTokenDur time.Duration
	Log             *logrus.Logger
}

func NewService(deps ServiceDeps) Service {
	log := deps.Log
	if log == nil {
		log = logger.Discard()
	}
	return &service{
		codeRepo:    deps.CodeRepo,
		userRepo:    deps.UserRepo,
		sessionRepo: deps.SessionRepo,
		mailer:      deps.Mailer,
		smsSender:   deps.SMSSender,
		issuer: &session.Issuer{
			Sessions:   deps.SessionRepo,
			Devices:    deps.DeviceRepo,
			JWT:        deps.JWTProvider,
			RefreshTTL: deps.RefreshTokenDur,
		},
		log: log,
	}
}

func (s *service) RequestPasswordRecovery(ctx context.Context, req PasswordRecoveryRequest) error {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	u, err := s.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		s.log.WithField("email_domain", emailDomain(email)).Info("password recovery for unknown email")
		return nil
	}
	if err != nil {
		return err
	}
	if !u.Enabled() {
		return nil
	}
	otp, err := s.issueCode(ctx, u.UserID, domain.CodePasswordReset, otpTTL, pkgtoken.NewOTP)
	if err != nil {
		return err
	}
	if err := s.mailer.SendEmail(ctx, u.Email, "Your password reset code", "Your password reset code is "+otp+". It expires in 15 minutes."); err != nil {
		s.log.WithError(err).WithField("user_id", u.UserID).Error("send recovery email")
	}
	return nil
}

func (s *service) ValidateOTP(ctx context.Context, req ValidateOTPRequest) (*session.LoginResult, error) {
	u, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("invalid code: %w", domain.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	if !u.Enabled() {
		return nil, fmt.Errorf("account disabled: %w", domain.ErrForbidden)
	}
	if err := s.consumeCode(ctx, u.UserID, domain.CodePasswordReset, req.OTP); err != nil {
		return nil, err
	}
	if err := s.ChangePassword(ctx, u.UserID, req.NewPassword); err != nil {
		return nil, err
	}
	// A recovered account starts over with a single session.
	if err := s.sessionRepo.SoftDeleteByUser(ctx, u.UserID); err != nil {
		return nil, err
	}
	return s.issuer.Issue(ctx, u, req.DeviceUUID)
}

func (s *service) ChangePassword(ctx context.Context, userID, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.userRepo.Update(ctx, userID, map[string]any{fieldPasswordHash: string(hash)})
}

func (s *service) RequestEmailConfirmation(ctx context.Context, userID string) error {
	u, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if u.EmailConfirmed {
		return fmt.Errorf("email already confirmed: %w", domain.ErrConflict)
	}
	tok, err := s.issueCode(ctx, userID, domain.CodeEmail, emailTokenTTL, func() (string, error) {
		return pkgtoken.NewAlphanumeric(emailTokenLen)
	})
	if err != nil {
		return err
	}
	return s.mailer.SendEmail(ctx, u.Email, "Confirm your email", "Your confirmation token: "+tok)
}

func (s *service) ValidateEmailToken(ctx context.Context, userID, token string) error {
	if err := s.consumeCode(ctx, userID, domain.CodeEmail, token); err != nil {
		return err
	}
	return s.userRepo.Update(ctx, userID, map[string]any{"email_confirmed": true})
}

func (s *service) RequestPhoneConfirmation(ctx context.Context, userID string) error {
	u, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if u.Phone == nil || *u.Phone == "" {
		return fmt.Errorf("no phone number on account: %w", domain.ErrBadRequest)
	}
	otp, err := s.issueCode(ctx, userID, domain.CodePhone, otpTTL, pkgtoken.NewOTP)
	if err != nil {
		return err
	}
	return s.smsSender.SendSMS(ctx, *u.Phone, "Your verification code: "+otp)
}

func (s *service) ValidatePhoneOTP(ctx context.Context, userID, otp string) error {
	if err := s.consumeCode(ctx, userID, domain.CodePhone, otp); err != nil {
		return err
	}
	return s.userRepo.Update(ctx, userID, map[string]any{"phone_confirmed": true})
}

func (s *service) issueCode(ctx context.Context, userID, codeType string, ttl time.Duration, gen func() (string, error)) (string, error) {
	code, err := gen()
	if err != nil {
		return "", err
	}
	if err := s.codeRepo.Put(ctx, &domain.VerificationCode{
		UserID:    userID,
		Type:      codeType,
		Code:      code,
		ExpiresAt: time.Now().Add(ttl).Unix(),
	}); err != nil {
		return "", err
	}
	return code, nil
}

// consumeCode checks code against the stored one and deletes it on success.
func (s *service) consumeCode(ctx context.Context, userID, codeType, code string) error {
	v, err := s.codeRepo.Get(ctx, userID, codeType)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("invalid code: %w", domain.ErrUnauthorized)
	}
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(v.Code), []byte(code)) != 1 {
		return fmt.Errorf("invalid code: %w", domain.ErrUnauthorized)
	}
	if v.ExpiresAt < time.Now().Unix() {
		return fmt.Errorf("code expired: %w", domain.ErrUnauthorized)
	}
	if err := s.codeRepo.Delete(ctx, userID, codeType); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"user_id": userID, "type": codeType}).Warn("delete used code")
	}
	return nil
}

func emailDomain(email string) string {
	_, d, _ := strings.Cut(email, "@")
	return d
}
