package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	Gemini GeminiConfig
	Exa    ExaConfig
	Dodo   DodoConfig

	RateLimit RateLimitConfig
}

// GeminiConfig configures the generative-model client.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// ExaConfig configures the web-search client.
type ExaConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// DodoConfig configures the payment provider client and webhook verification.
type DodoConfig struct {
	APIKey        string
	BaseURL       string
	WebhookSecret string
	ReturnURL     string
	Timeout       time.Duration
}

// RateLimitConfig configures the trend-generation request limiter.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")

	return Config{
		AppName:      getenv("APP_SERVICE", "scyra"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  environment,
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "scyra"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),

		Gemini: GeminiConfig{
			APIKey:  strings.TrimSpace(getenv("GEMINI_API_KEY", "")),
			Model:   getenv("GEMINI_MODEL", "gemini-2.5-flash"),
			BaseURL: getenv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
			Timeout: getenvDuration("GEMINI_TIMEOUT", 60*time.Second),
		},
		Exa: ExaConfig{
			APIKey:  strings.TrimSpace(getenv("EXA_API_KEY", "")),
			BaseURL: getenv("EXA_BASE_URL", "https://api.exa.ai"),
			Timeout: getenvDuration("EXA_TIMEOUT", 30*time.Second),
		},
		Dodo: DodoConfig{
			APIKey:        strings.TrimSpace(getenv("DODO_API_KEY", "")),
			BaseURL:       getenv("DODO_BASE_URL", "https://api.dodopayments.com/v1"),
			WebhookSecret: strings.TrimSpace(getenv("DODO_WEBHOOK_SECRET", "")),
			ReturnURL:     getenv("DODO_RETURN_URL", "http://localhost:3000/dashboard?checkout=success"),
			Timeout:       getenvDuration("DODO_TIMEOUT", 30*time.Second),
		},
		RateLimit: RateLimitConfig{
			Requests:      getenvInt("RATE_LIMIT_REQUESTS", 5),
			Window:        getenvDuration("RATE_LIMIT_WINDOW", time.Minute),
			RedisAddr:     strings.TrimSpace(getenv("RATE_LIMIT_REDIS_ADDR", "")),
			RedisPassword: strings.TrimSpace(getenv("RATE_LIMIT_REDIS_PASSWORD", "")),
			RedisDB:       getenvInt("RATE_LIMIT_REDIS_DB", 0),
		},
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
