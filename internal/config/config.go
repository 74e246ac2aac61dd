package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port        string
	Env         string
	LogLevel    string
	DatabaseURL string

	// WhatsApp gateway
	GatewayBaseURL   string
	GatewayAPIKey    string
	GatewaySessionID string
	GatewayTimeout   time.Duration

	// Delivery pacing and dispatch
	PacingInterval     time.Duration
	DispatchBatchLimit int
	DispatchLeaseTTL   time.Duration
	DispatchInterval   time.Duration

	// Reminder offsets, in minutes before the appointment
	ReminderOffsetsMinutes []int

	// Reconciler
	ReconcileInterval   time.Duration
	OrphanRetentionDays int

	// Redis (dispatch run lease)
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// AWS / SES operator reports
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	SESFromEmail       string
	SESFromName        string
	OperatorEmail      string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		GatewayBaseURL:   getEnv("GATEWAY_BASE_URL", ""),
		GatewayAPIKey:    getEnv("GATEWAY_API_KEY", ""),
		GatewaySessionID: getEnv("GATEWAY_SESSION_ID", ""),
		GatewayTimeout:   getEnvAsDuration("GATEWAY_TIMEOUT", 15*time.Second),

		PacingInterval:     getEnvAsDuration("PACING_INTERVAL", 5*time.Second),
		DispatchBatchLimit: getEnvAsInt("DISPATCH_BATCH_LIMIT", 100),
		DispatchLeaseTTL:   getEnvAsDuration("DISPATCH_LEASE_TTL", 2*time.Minute),
		DispatchInterval:   getEnvAsDuration("DISPATCH_INTERVAL", time.Minute),

		ReminderOffsetsMinutes: getEnvAsIntSlice("REMINDER_OFFSETS_MINUTES", []int{60, 1440}),

		ReconcileInterval:   getEnvAsDuration("RECONCILE_INTERVAL", time.Hour),
		OrphanRetentionDays: getEnvAsInt("ORPHAN_RETENTION_DAYS", 30),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		SESFromEmail:       getEnv("SES_FROM_EMAIL", ""),
		SESFromName:        getEnv("SES_FROM_NAME", "MedReserva"),
		OperatorEmail:      getEnv("OPERATOR_EMAIL", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsIntSlice parses a comma-separated list of integers.
// Malformed entries invalidate the whole value and the default is used.
func getEnvAsIntSlice(key string, defaultValue []int) []int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	result := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return defaultValue
		}
		result = append(result, v)
	}
	return result
}
