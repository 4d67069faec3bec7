package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

type Config struct {
	Addr                   string
	DatabaseURL            string
	JWTSecret              string
	Environment            string
	RunMigrations          bool
	MigrationsDir          string
	RunSeed                bool
	SeedAdminEmail         string
	SeedAdminName          string
	MaxBodyBytes           int64
	RateLimitPerMinute     int
	MetricsEnabled         bool
	DefaultScoringMethod   string
	MaxRating              float64
	AutoCreationSchedule   string
	IntegrityCheckSchedule string
	NotifyWorkers          int
	NotifyQueueSize        int
	EmailFrom              string
	EmailEnabled           bool
	SMTPHost               string
	SMTPPort               int
	SMTPUser               string
	SMTPPassword           string
	SMTPUseTLS             bool
	PushEnabled            bool
	VAPIDPublicKey         string
	VAPIDPrivateKey        string
	VAPIDSubject           string
	PushTTL                time.Duration
}

// Load reads configuration from the environment. Outside production an optional
// .env file in the working directory is applied first; real env vars win.
func Load() Config {
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			slog.Warn("dotenv load failed", "err", err)
		}
	}

	return Config{
		Addr:                   getEnv("APP_ADDR", ":8080"),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		JWTSecret:              getEnv("JWT_SECRET", ""),
		Environment:            getEnv("APP_ENV", "development"),
		RunMigrations:          getEnvBool("RUN_MIGRATIONS", true),
		MigrationsDir:          getEnv("MIGRATIONS_DIR", "migrations"),
		RunSeed:                getEnvBool("RUN_SEED", false),
		SeedAdminEmail:         getEnv("SEED_ADMIN_EMAIL", ""),
		SeedAdminName:          getEnv("SEED_ADMIN_NAME", "Administrator"),
		MaxBodyBytes:           int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		RateLimitPerMinute:     getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		MetricsEnabled:         getEnvBool("METRICS_ENABLED", true),
		DefaultScoringMethod:   getEnv("DEFAULT_SCORING_METHOD", "simple_average"),
		MaxRating:              getEnvFloat("MAX_RATING", 5),
		AutoCreationSchedule:   getEnv("AUTO_CREATION_SCHEDULE", "0 2 * * *"),
		IntegrityCheckSchedule: getEnv("INTEGRITY_CHECK_SCHEDULE", "30 3 * * *"),
		NotifyWorkers:          getEnvInt("NOTIFY_WORKERS", 4),
		NotifyQueueSize:        getEnvInt("NOTIFY_QUEUE_SIZE", 256),
		EmailFrom:              getEnv("EMAIL_FROM", "no-reply@example.com"),
		EmailEnabled:           getEnvBool("EMAIL_ENABLED", false),
		SMTPHost:               getEnv("SMTP_HOST", ""),
		SMTPPort:               getEnvInt("SMTP_PORT", 587),
		SMTPUser:               getEnv("SMTP_USER", ""),
		SMTPPassword:           getEnv("SMTP_PASSWORD", ""),
		SMTPUseTLS:             getEnvBool("SMTP_USE_TLS", true),
		PushEnabled:            getEnvBool("PUSH_ENABLED", false),
		VAPIDPublicKey:         getEnv("VAPID_PUBLIC_KEY", ""),
		VAPIDPrivateKey:        getEnv("VAPID_PRIVATE_KEY", ""),
		VAPIDSubject:           getEnv("VAPID_SUBJECT", "mailto:no-reply@example.com"),
		PushTTL:                getEnvDuration("PUSH_TTL", 12*time.Hour),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Environment == "production" && strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
	}
	switch c.DefaultScoringMethod {
	case "simple_average", "weighted_average":
	default:
		return fmt.Errorf("DEFAULT_SCORING_METHOD must be simple_average or weighted_average")
	}
	if c.MaxRating <= 0 {
		return fmt.Errorf("MAX_RATING must be positive")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.NotifyWorkers <= 0 || c.NotifyQueueSize <= 0 {
		return fmt.Errorf("NOTIFY_WORKERS and NOTIFY_QUEUE_SIZE must be positive")
	}
	for key, expr := range map[string]string{
		"AUTO_CREATION_SCHEDULE":   c.AutoCreationSchedule,
		"INTEGRITY_CHECK_SCHEDULE": c.IntegrityCheckSchedule,
	} {
		if expr == "" || expr == "off" {
			continue
		}
		if _, err := scheduleParser.Parse(expr); err != nil {
			return fmt.Errorf("%s is not a valid cron expression: %w", key, err)
		}
	}
	if c.RunSeed && !strings.Contains(c.SeedAdminEmail, "@") {
		return fmt.Errorf("SEED_ADMIN_EMAIL must be a valid email when RUN_SEED is true")
	}
	if c.EmailEnabled && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	if c.PushEnabled && (c.VAPIDPublicKey == "" || c.VAPIDPrivateKey == "") {
		return fmt.Errorf("VAPID_PUBLIC_KEY and VAPID_PRIVATE_KEY must be set when PUSH_ENABLED is true")
	}
	return nil
}

// ScheduleParser exposes the parser used by Validate so the job runner accepts
// exactly the same expressions.
func ScheduleParser() cron.Parser {
	return scheduleParser
}
