// Package config loads application configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string

	DatabaseURL string

	// Working-hours grid for the availability resolver.
	ScheduleStart   string
	ScheduleEnd     string
	ScheduleStep    time.Duration
	DefaultLocation string
	// ClinicUTCOffset bounds the local calendar day when querying
	// appointments. The clinic runs on a fixed UTC-4 offset.
	ClinicUTCOffset time.Duration

	AdminJWTSecret     string
	CORSAllowedOrigins []string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Email delivery. Provider is "sendgrid", "ses", or "stub".
	EmailProvider    string
	EmailFromAddress string
	EmailFromName    string
	SendGridAPIKey   string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Assistant chat proxy.
	BedrockModelID  string
	GeminiAPIKey    string
	GeminiModelID   string
	ChatHistoryTTL  time.Duration
	ChatRatePerSec  float64
	ChatRateBurst   int
	ChatMaxTokens   int
	ChatTemperature float64
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		ScheduleStart:   getEnv("SCHEDULE_START", "07:00"),
		ScheduleEnd:     getEnv("SCHEDULE_END", "17:00"),
		ScheduleStep:    getEnvAsDuration("SCHEDULE_STEP", 30*time.Minute),
		DefaultLocation: getEnv("DEFAULT_LOCATION", "Sede Principal Maracay"),
		ClinicUTCOffset: getEnvAsDuration("CLINIC_UTC_OFFSET", -4*time.Hour),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		EmailProvider:    strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "stub"))),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "Laboratorio Diagnóstica"),
		SendGridAPIKey:   getEnv("SENDGRID_API_KEY", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		BedrockModelID:  getEnv("BEDROCK_MODEL_ID", ""),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:   getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		ChatHistoryTTL:  getEnvAsDuration("CHAT_HISTORY_TTL", 24*time.Hour),
		ChatRatePerSec:  getEnvAsFloat("CHAT_RATE_PER_SEC", 1),
		ChatRateBurst:   getEnvAsInt("CHAT_RATE_BURST", 5),
		ChatMaxTokens:   getEnvAsInt("CHAT_MAX_TOKENS", 1024),
		ChatTemperature: getEnvAsFloat("CHAT_TEMPERATURE", 0.4),
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
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
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

// getEnvAsList splits a comma-separated variable, dropping empty items.
func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
