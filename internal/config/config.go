package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port string
	Mode string

	// Database configuration
	DatabaseURL string

	// Redis configuration
	RedisURL string

	// Trial abuse configuration
	IPTrialThreshold     int // distinct consumed fingerprints per network before denial
	IPLookbackDays       int // window for the per-network count
	StoreTimeoutSecs     int // bound on every record-store call
	CheckRateLimitPerMin int

	// Session configuration
	SessionExpireHours int

	// Abuse alert webhook (optional)
	AbuseWebhookURL    string
	AbuseWebhookSecret string

	ServiceName string
}

var AppConfig *Config

func InitConfig() error {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		// Ignore error if .env file doesn't exist
	}

	AppConfig = &Config{
		Port:                 getEnv("PORT", "8080"),
		Mode:                 getEnv("GIN_MODE", "debug"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		RedisURL:             getEnv("REDIS_URL", "redis://localhost:6379/0"),
		IPTrialThreshold:     getEnvInt("TRIAL_IP_THRESHOLD", 3),
		IPLookbackDays:       getEnvInt("TRIAL_IP_LOOKBACK_DAYS", 30),
		StoreTimeoutSecs:     getEnvInt("STORE_TIMEOUT_SECONDS", 3),
		CheckRateLimitPerMin: getEnvInt("CHECK_RATE_LIMIT_PER_MINUTE", 30),
		SessionExpireHours:   getEnvInt("SESSION_EXPIRE_HOURS", 24),
		AbuseWebhookURL:      getEnv("ABUSE_WEBHOOK_URL", ""),
		AbuseWebhookSecret:   getEnv("ABUSE_WEBHOOK_SECRET", ""),
		ServiceName:          getEnv("SERVICE_NAME", "Trial Guard Service"),
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
