package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/go-dating-api/internal/application/notification"
	"github.com/go-dating-api/internal/config"
	"github.com/go-dating-api/internal/infrastructure/awsinfra"
	"github.com/go-dating-api/internal/infrastructure/dynamo"
	"github.com/go-dating-api/internal/infrastructure/mailgun"
	"github.com/go-dating-api/internal/infrastructure/rabbitmq"
	redisinfra "github.com/go-dating-api/internal/infrastructure/redis"
	"github.com/go-dating-api/internal/infrastructure/smtp"
	"github.com/go-dating-api/internal/pkg/logger"
	"github.com/go-dating-api/internal/worker"
)

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()
	log := logger.New(cfg.AppName+"-worker", cfg.AppEnv)
	if envErr != nil {
		log.Debug("no .env file found, reading from environment")
	}
	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("worker stopped")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	if cfg.RabbitMQURL == "" {
		return errors.New("RABBITMQ_URL is required")
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := awsinfra.Load(ctx, cfg, cfg.AWSRegion)
	if err != nil {
		return err
	}
	dynamoClient := dynamo.NewClient(awsCfg, cfg.AWSEndpointURL)

	rdb, err := redisinfra.NewClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer rdb.Close()

	consumer, err := rabbitmq.NewConsumer(cfg.RabbitMQURL, cfg.RabbitMQEventQueue, log)
	if err != nil {
		return err
	}
	defer consumer.Close()

	w := worker.New(worker.Deps{
		Notifications: notification.NewService(dynamo.NewNotificationRepo(dynamoClient, cfg.DynamoTables.Notifications)),
		Users:         dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		Presence:      redisinfra.NewPresenceStore(rdb, redisinfra.DefaultPresenceTTL),
		Mailer:        newMailer(cfg),
		Log:           log,
	})
	return consumer.Run(ctx, w.Handle)
}

type mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

func newMailer(cfg *config.Config) mailer {
	if cfg.MailgunAPIKey != "" && cfg.MailgunDomain != "" {
		return mailgun.NewMailer(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
	}
	return smtp.NewMailer(cfg)
}
