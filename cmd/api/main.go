package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/go-dating-api/internal/application/event"
	"github.com/go-dating-api/internal/config"
	"github.com/go-dating-api/internal/infrastructure/awsinfra"
	"github.com/go-dating-api/internal/infrastructure/dynamo"
	"github.com/go-dating-api/internal/infrastructure/google"
	jwtinfra "github.com/go-dating-api/internal/infrastructure/jwt"
	"github.com/go-dating-api/internal/infrastructure/mailgun"
	"github.com/go-dating-api/internal/infrastructure/rabbitmq"
	redisinfra "github.com/go-dating-api/internal/infrastructure/redis"
	s3infra "github.com/go-dating-api/internal/infrastructure/s3"
	"github.com/go-dating-api/internal/infrastructure/smtp"
	"github.com/go-dating-api/internal/infrastructure/sns"
	"github.com/go-dating-api/internal/pkg/logger"
	"github.com/go-dating-api/internal/transport/http/handler"
	transporthttp "github.com/go-dating-api/internal/transport/http"
	"github.com/go-dating-api/internal/transport/ws"
)

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()
	log := logger.New(cfg.AppName, cfg.AppEnv)
	if envErr != nil {
		log.Debug("no .env file found, reading from environment")
	}
	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("api stopped")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx := context.Background()

	awsCfg, err := awsinfra.Load(ctx, cfg, cfg.AWSRegion)
	if err != nil {
		return err
	}
	dynamoClient := dynamo.NewClient(awsCfg, cfg.AWSEndpointURL)
	if !cfg.IsProduction() {
		// Creates missing tables and indexes against LocalStack.
		dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables, log)
	}

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		return fmt.Errorf("jwt provider: %w", err)
	}

	rdb, err := redisinfra.NewClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer rdb.Close()

	var publisher event.Publisher = rabbitmq.NewLogPublisher(log)
	if cfg.RabbitMQURL != "" {
		p, err := rabbitmq.Dial(cfg.RabbitMQURL, cfg.RabbitMQEventQueue)
		if err != nil {
			return err
		}
		defer p.Close()
		publisher = p
	} else {
		log.Warn("RABBITMQ_URL not set; events are only logged")
	}

	smsCfg, err := awsinfra.Load(ctx, cfg, cfg.SNSRegion)
	if err != nil {
		return err
	}

	hub := ws.NewHub(log)
	defer hub.Close()

	tables := cfg.DynamoTables
	deps := &transporthttp.Deps{
		UserRepo:         dynamo.NewUserRepo(dynamoClient, tables.Users),
		ProfileRepo:      dynamo.NewProfileRepo(dynamoClient, tables.Profiles),
		SessionRepo:      dynamo.NewSessionRepo(dynamoClient, tables.Sessions),
		DeviceRepo:       dynamo.NewDeviceRepo(dynamoClient, tables.Devices),
		CodeRepo:         dynamo.NewCodeRepo(dynamoClient, tables.VerificationCodes),
		NotificationRepo: dynamo.NewNotificationRepo(dynamoClient, tables.Notifications),
		FileRepo:         dynamo.NewFileRepo(dynamoClient, tables.Files),
		SwipeRepo:        dynamo.NewSwipeRepo(dynamoClient, tables.Swipes),
		MatchRepo:        dynamo.NewMatchRepo(dynamoClient, tables.Matches),
		MessageRepo:      dynamo.NewMessageRepo(dynamoClient, tables.Messages),
		SubscriptionRepo: dynamo.NewSubscriptionRepo(dynamoClient, tables.Subscriptions),
		VerificationRepo: dynamo.NewPhotoVerificationRepo(dynamoClient, tables.PhotoVerifications),
		S3Store:          s3infra.NewStore(s3infra.NewClient(awsCfg, cfg.AWSEndpointURL), cfg.S3BucketName, cfg.MediaBaseURL),
		Redis:            rdb,
		Publisher:        publisher,
		Mailer:           newMailer(cfg, log),
		SMSSender:        sns.NewSender(smsCfg, cfg.AWSEndpointURL),
		JWTProvider:      jwtProvider,
		GoogleVerifier:   google.NewVerifier(cfg.GoogleClientID),
		Hub:              hub,
		Probes:           []handler.Probe{{Name: "dynamodb", Check: dynamo.Ping(dynamoClient, tables.Users)}},
		Log:              log,
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.AppPort),
		Handler:           transporthttp.NewRouter(cfg, deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"port": cfg.AppPort, "env": cfg.AppEnv}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-quit:
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// Hijacked WebSocket connections are not tracked by Shutdown.
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

// newMailer prefers Mailgun when an API key is configured and falls back
// to plain SMTP.
func newMailer(cfg *config.Config, log *logrus.Logger) transporthttp.Mailer {
	if cfg.MailgunAPIKey != "" && cfg.MailgunDomain != "" {
		log.WithField("domain", cfg.MailgunDomain).Info("using mailgun mailer")
		return mailgun.NewMailer(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
	}
	return smtp.NewMailer(cfg)
}
