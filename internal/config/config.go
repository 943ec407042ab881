package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	GridAPIKey      string
	GridBaseURL     string
	GridEnvironment string // "sandbox" | "production"
	GridHTTPTimeout time.Duration

	TrackPollInterval time.Duration
	TrackListLimit    int

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	OTPExpiry time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	SNSRegion   string
	SNSTopicARN string // empty disables payment-event publishing

	S3BucketName string // empty disables receipt archiving

	PaymentLinkBaseURL string
	AllowedOrigins     []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Accounts        string
	AuthSessions    string
	Invoices        string
	VirtualAccounts string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Accounts:        getEnv("DYNAMO_TABLE_ACCOUNTS", "accounts"),
			AuthSessions:    getEnv("DYNAMO_TABLE_AUTH_SESSIONS", "auth_sessions"),
			Invoices:        getEnv("DYNAMO_TABLE_INVOICES", "invoices"),
			VirtualAccounts: getEnv("DYNAMO_TABLE_VIRTUAL_ACCOUNTS", "virtual_accounts"),
		},

		GridAPIKey:      getEnv("GRID_API_KEY", ""),
		GridBaseURL:     getEnv("GRID_BASE_URL", "https://grid.squads.xyz"),
		GridEnvironment: getEnv("GRID_ENVIRONMENT", "sandbox"),
		GridHTTPTimeout: getEnvDuration("GRID_HTTP_TIMEOUT_SECONDS", 30*time.Second),

		TrackPollInterval: getEnvDuration("TRACK_POLL_INTERVAL_SECONDS", 15*time.Second),
		TrackListLimit:    getEnvInt("TRACK_LIST_LIMIT", 10),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         getEnvDuration("JWT_EXPIRY_HOURS", 7*24*time.Hour),

		OTPExpiry: getEnvDuration("OTP_EXPIRY_SECONDS", 10*time.Minute),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "invoices@payorbit.live"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		SNSRegion:   getEnv("SNS_REGION", "us-east-1"),
		SNSTopicARN: getEnv("SNS_TOPIC_ARN", ""),

		S3BucketName: getEnv("S3_BUCKET_NAME", ""),

		PaymentLinkBaseURL: getEnv("PAYMENT_LINK_BASE_URL", "http://localhost:3000"),
		AllowedOrigins:     strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
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

// getEnvDuration reads an env var holding a count of the fallback's base unit:
// keys ending in _SECONDS are seconds, _HOURS are hours.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	if strings.HasSuffix(key, "_HOURS") {
		return time.Duration(n) * time.Hour
	}
	return time.Duration(n) * time.Second
}
