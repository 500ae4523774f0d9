package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every environment variable the service reads at startup.
// Transport credentials (SMTP_*, TWILIO_*) are read by the sender
// constructors themselves, matching how they are deployed per environment.
type Config struct {
	Port       string
	Env        string
	CronSecret string

	PortalBaseURL   string
	PortalLoginPath string

	CountryCode string // calling code for trunk-prefix normalization

	EmailBatchSize      int
	SMSBatchSize        int
	MaxAttempts         int
	DelayThresholdDays  int
	ReviewThresholdDays int
	ScanLimit           int
	LockGraceMinutes    int
	SendTimeoutSeconds  int

	RateLimitPerMinute int
	RedisURL           string // optional; enables the shared rate-limit counter
	SQSQueueURL        string // optional; enables the lifecycle event consumer
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:       getEnv("PORT", "8086"),
		Env:        getEnv("APP_ENV", "dev"),
		CronSecret: os.Getenv("CRON_SECRET"),

		PortalBaseURL:   getEnv("PORTAL_BASE_URL", "https://www.dinarexchange.co.nz"),
		PortalLoginPath: getEnv("PORTAL_LOGIN_PATH", "/login"),

		CountryCode: getEnv("SMS_COUNTRY_CODE", "+64"),

		EmailBatchSize:      getEnvInt("EMAIL_BATCH_SIZE", 20),
		SMSBatchSize:        getEnvInt("SMS_BATCH_SIZE", 50),
		MaxAttempts:         getEnvInt("MAX_ATTEMPTS", 3),
		DelayThresholdDays:  getEnvInt("DELAY_THRESHOLD_DAYS", 7),
		ReviewThresholdDays: getEnvInt("REVIEW_THRESHOLD_DAYS", 7),
		ScanLimit:           getEnvInt("SCAN_LIMIT", 50),
		LockGraceMinutes:    getEnvInt("LOCK_GRACE_MINUTES", 15),
		SendTimeoutSeconds:  getEnvInt("SEND_TIMEOUT_SECONDS", 15),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 100),
		RedisURL:           os.Getenv("REDIS_URL"),
		SQSQueueURL:        os.Getenv("SQS_QUEUE_URL"),
	}

	if cfg.CronSecret == "" {
		return nil, fmt.Errorf("CRON_SECRET is required")
	}

	return cfg, nil
}

func (c *Config) DelayThreshold() time.Duration {
	return time.Duration(c.DelayThresholdDays) * 24 * time.Hour
}

func (c *Config) ReviewThreshold() time.Duration {
	return time.Duration(c.ReviewThresholdDays) * 24 * time.Hour
}

func (c *Config) LockGrace() time.Duration {
	return time.Duration(c.LockGraceMinutes) * time.Minute
}

func (c *Config) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
