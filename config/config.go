package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
)

type AppConfig struct {
	Port          string
	MONGOSTRING   string
	MongoDB       string
	PASETO_SECRET string
	TokenTTL      time.Duration

	RedisURL    string
	ScanLockTTL time.Duration

	// Zero disables the background expiry sweep.
	PassExpirySweep time.Duration
	ReportLocation  *time.Location

	SendGridAPIKey string
	FromEmail      string

	LogLevel       log.Lvl
	SeedUsers      bool
	AllowedOrigins []string
}

// LoadConfig loads configuration from .env file and the process environment.
func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Warnf("Error loading .env file (might not exist in production): %v", err)
	}

	secretBase64 := getEnv("PASETO_SECRET", "")
	if secretBase64 == "" {
		return nil, fmt.Errorf("PASETO_SECRET is not set")
	}
	if _, err := DecodeSecret(secretBase64); err != nil {
		return nil, err
	}

	mongoURI := getEnv("MONGOSTRING", "")
	if mongoURI == "" {
		return nil, fmt.Errorf("MONGOSTRING is not set")
	}

	tz := getEnv("REPORT_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("REPORT_TIMEZONE %q: %w", tz, err)
	}

	return &AppConfig{
		Port:            getEnv("PORT", "3000"),
		MONGOSTRING:     mongoURI,
		MongoDB:         getEnv("MONGO_DB", DBName),
		PASETO_SECRET:   secretBase64,
		TokenTTL:        time.Duration(getEnvInt("TOKEN_TTL_HOURS", 24)) * time.Hour,
		RedisURL:        getEnv("REDIS_URL", ""),
		ScanLockTTL:     time.Duration(getEnvInt("SCAN_LOCK_TTL_SECONDS", 10)) * time.Second,
		PassExpirySweep: time.Duration(getEnvInt("PASS_EXPIRY_SWEEP_MINUTES", 15)) * time.Minute,
		ReportLocation:  loc,
		SendGridAPIKey:  getEnv("SENDGRID_API_KEY", ""),
		FromEmail:       getEnv("FROM_EMAIL", ""),
		LogLevel:        parseLogLevel(getEnv("LOG_LEVEL", "INFO")),
		SeedUsers:       getEnvBool("SEED_USERS", false),
		AllowedOrigins:  splitList(getEnv("ALLOWED_ORIGINS", "")),
	}, nil
}

// DecodeSecret accepts URL-safe or standard base64 and requires a 32 byte key.
func DecodeSecret(secret string) ([]byte, error) {
	key, err := base64.URLEncoding.DecodeString(secret)
	if err != nil {
		key, err = base64.StdEncoding.DecodeString(secret)
		if err != nil {
			return nil, fmt.Errorf("PASETO_SECRET is not valid base64: %w", err)
		}
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("PASETO_SECRET (decoded) must be exactly 32 bytes long, got %d", len(key))
	}
	return key, nil
}

// Helper function to get environment variable or fallback to default
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		log.Warnf("Invalid value %q for %s, using %d", raw, key, defaultValue)
		return defaultValue
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		log.Warnf("Invalid value %q for %s, using %t", raw, key, defaultValue)
		return defaultValue
	}
	return v
}

func parseLogLevel(s string) log.Lvl {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return log.DEBUG
	case "WARN":
		return log.WARN
	case "ERROR":
		return log.ERROR
	case "OFF":
		return log.OFF
	default:
		return log.INFO
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
