package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppName string
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	S3BucketName   string
	MediaBaseURL   string // public CDN prefix for profile photos; empty falls back to s3:// URLs
	SNSRegion      string

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration
	RefreshTokenTTL   time.Duration
	GoogleClientID    string

	SMTPHost      string
	SMTPPort      string
	SMTPFrom      string
	SMTPUsername  string
	SMTPPassword  string
	MailgunDomain string
	MailgunAPIKey string
	MailgunSender string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RabbitMQURL        string
	RabbitMQEventQueue string

	PIX   PIXConfig
	Boost time.Duration

	PaymentWebhookSecret string
	AllowedOrigins       []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users              string
	Sessions           string
	Devices            string
	Notifications      string
	Files              string
	VerificationCodes  string
	Profiles           string
	Swipes             string
	Matches            string
	Messages           string
	Subscriptions      string
	PhotoVerifications string
}

// PIXConfig identifies the merchant receiving PIX payments.
type PIXConfig struct {
	Key          string
	MerchantName string
	MerchantCity string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppName:        getEnv("APP_NAME", "dating-api"),
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:              getEnv("DYNAMO_TABLE_USERS", "users"),
			Sessions:           getEnv("DYNAMO_TABLE_SESSIONS", "sessions"),
			Devices:            getEnv("DYNAMO_TABLE_DEVICES", "devices"),
			Notifications:      getEnv("DYNAMO_TABLE_NOTIFICATIONS", "notifications"),
			Files:              getEnv("DYNAMO_TABLE_FILES", "files"),
			VerificationCodes:  getEnv("DYNAMO_TABLE_VERIFICATION_CODES", "verification_codes"),
			Profiles:           getEnv("DYNAMO_TABLE_PROFILES", "profiles"),
			Swipes:             getEnv("DYNAMO_TABLE_SWIPES", "swipes"),
			Matches:            getEnv("DYNAMO_TABLE_MATCHES", "matches"),
			Messages:           getEnv("DYNAMO_TABLE_MESSAGES", "messages"),
			Subscriptions:      getEnv("DYNAMO_TABLE_SUBSCRIPTIONS", "subscriptions"),
			PhotoVerifications: getEnv("DYNAMO_TABLE_PHOTO_VERIFICATIONS", "photo_verifications"),
		},
		S3BucketName:      getEnv("S3_BUCKET_NAME", "dating-media"),
		MediaBaseURL:      strings.TrimSuffix(getEnv("MEDIA_BASE_URL", ""), "/"),
		SNSRegion:         getEnv("SNS_REGION", "us-east-1"),
		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_DAYS", 7)) * 24 * time.Hour,
		RefreshTokenTTL:   time.Duration(getEnvInt("REFRESH_TOKEN_EXPIRY_DAYS", 30)) * 24 * time.Hour,
		GoogleClientID:    getEnv("GOOGLE_CLIENT_ID", ""),
		SMTPHost:          getEnv("SMTP_HOST", "localhost"),
		SMTPPort:          getEnv("SMTP_PORT", "1025"),
		SMTPFrom:          getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		MailgunDomain:     getEnv("MAILGUN_DOMAIN", ""),
		MailgunAPIKey:     getEnv("MAILGUN_API_KEY", ""),
		MailgunSender:     getEnv("MAILGUN_SENDER", ""),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getEnvInt("REDIS_DB", 0),

		RabbitMQURL:        getEnv("RABBITMQ_URL", ""),
		RabbitMQEventQueue: getEnv("RABBITMQ_EVENT_QUEUE", "dating.events"),
		PIX: PIXConfig{
			Key:          getEnv("PIX_KEY", "pagamentos@example.com"),
			MerchantName: getEnv("PIX_MERCHANT_NAME", "DATING APP"),
			MerchantCity: getEnv("PIX_MERCHANT_CITY", "SAO PAULO"),
		},
		Boost:                time.Duration(getEnvInt("BOOST_MINUTES", 30)) * time.Minute,
		PaymentWebhookSecret: getEnv("PAYMENT_WEBHOOK_SECRET", ""),
		AllowedOrigins:       strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

// IsProduction reports whether the app runs outside development.
func (c *Config) IsProduction() bool {
	return c.AppEnv != "development"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
