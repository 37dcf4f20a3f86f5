package http

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/go-dating-api/internal/application/event"
	"github.com/go-dating-api/internal/infrastructure/dynamo"
	"github.com/go-dating-api/internal/infrastructure/google"
	jwtinfra "github.com/go-dating-api/internal/infrastructure/jwt"
	s3infra "github.com/go-dating-api/internal/infrastructure/s3"
	"github.com/go-dating-api/internal/transport/http/handler"
	"github.com/go-dating-api/internal/transport/ws"
)

// Mailer sends transactional email (SMTP or Mailgun).
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SMSSender delivers phone confirmation codes.
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo         *dynamo.UserRepo
	ProfileRepo      *dynamo.ProfileRepo
	SessionRepo      *dynamo.SessionRepo
	DeviceRepo       *dynamo.DeviceRepo
	CodeRepo         *dynamo.CodeRepo
	NotificationRepo *dynamo.NotificationRepo
	FileRepo         *dynamo.FileRepo
	SwipeRepo        *dynamo.SwipeRepo
	MatchRepo        *dynamo.MatchRepo
	MessageRepo      *dynamo.MessageRepo
	SubscriptionRepo *dynamo.SubscriptionRepo
	VerificationRepo *dynamo.PhotoVerificationRepo

	S3Store        *s3infra.Store
	Redis          *redis.Client
	Publisher      event.Publisher
	Mailer         Mailer
	SMSSender      SMSSender
	JWTProvider    *jwtinfra.Provider
	GoogleVerifier *google.Verifier
	Hub            *ws.Hub
	// Probes are extra readiness checks served by /health-check/ready.
	Probes []handler.Probe
	Log            *logrus.Logger
}
