package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures everything the server reads from the environment so main
// stays lean.
type Config struct {
	Addr string

	// PostgresURL is optional; memory stores are used when it is empty.
	PostgresURL string
	// RedisURL is optional; the in-memory credential store is used when empty.
	RedisURL string

	JWTSigningKey string
	JWTIssuer     string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	OTPTTL        time.Duration
	ResetTokenTTL time.Duration

	// Stripe-compatible payment processor. Empty key selects the local fake.
	PaymentAPIKey  string
	PaymentBaseURL string
	PaymentTimeout time.Duration

	// Generative assistant backend. Empty key selects the rule-based fallback
	// only.
	AssistantAPIKey  string
	AssistantBaseURL string
	AssistantTimeout time.Duration

	// Kafka audit trail. Empty brokers means log-only audit.
	KafkaBrokers string
	AuditTopic   string

	UploadDir     string
	MaxUploadSize int64

	// SweepInterval drives the orphaned-attachment reconciliation pass.
	SweepInterval time.Duration
	SweepGrace    time.Duration
}

// FromEnv builds a Config from environment variables with dev defaults.
func FromEnv() Config {
	return Config{
		Addr: envOr("COVERGATE_ADDR", ":8080"),

		PostgresURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		// Default only suitable for development.
		JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:     envOr("JWT_ISSUER", "covergate"),
		AccessTTL:     envDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTTL:    envDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		OTPTTL:        envDuration("OTP_TTL", 10*time.Minute),
		ResetTokenTTL: envDuration("RESET_TOKEN_TTL", time.Hour),

		PaymentAPIKey:  os.Getenv("STRIPE_SECRET_KEY"),
		PaymentBaseURL: envOr("STRIPE_BASE_URL", "https://api.stripe.com"),
		PaymentTimeout: envDuration("PAYMENT_TIMEOUT", 10*time.Second),

		AssistantAPIKey:  os.Getenv("ASSISTANT_API_KEY"),
		AssistantBaseURL: envOr("ASSISTANT_BASE_URL", "https://generativelanguage.googleapis.com"),
		AssistantTimeout: envDuration("ASSISTANT_TIMEOUT", 8*time.Second),

		KafkaBrokers: os.Getenv("KAFKA_BROKERS"),
		AuditTopic:   envOr("AUDIT_TOPIC", "covergate.audit"),

		UploadDir:     envOr("UPLOAD_DIR", "uploads"),
		MaxUploadSize: envInt64("MAX_FILE_SIZE", 5<<20),

		SweepInterval: envDuration("ATTACHMENT_SWEEP_INTERVAL", time.Hour),
		SweepGrace:    envDuration("ATTACHMENT_SWEEP_GRACE", 24*time.Hour),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
