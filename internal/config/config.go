package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string // Required: PostgreSQL connection string
	BrokerURL   string // Required: amqp(s):// or redis(s):// URL, read from RABBITMQ_URL
	JWTSecret   string // Required: HS256 signing secret

	Port              string   // HTTP port (default: 3000)
	AppURL            string   // Base URL used in the startup log line (default: http://localhost)
	NotificationQueue string   // Queue receiving user created messages (default: user_created)
	CORSOrigins       []string // Allowed origins, comma separated (default: *)
	RateLimit         int      // Login/register requests per minute per IP, 0 disables (default: 0)

	DBConnectAttempts    int           // Database connection attempts before giving up (default: 5)
	DBRetryDelay         time.Duration // Pause between database attempts (default: 5s)
	DBAttemptTimeout     time.Duration // Upper bound on a single database attempt (default: 10s)
	BrokerConnectTimeout time.Duration // Upper bound on the broker handshake (default: 5s)
	RequestTimeout       time.Duration // Per-request deadline (default: 10s)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)

	Env       string // Environment (dev, staging, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: json)
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first if present; real environment variables
// win over it. The returned error names every missing required variable.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		BrokerURL:   strings.TrimSpace(os.Getenv("RABBITMQ_URL")),
		JWTSecret:   os.Getenv("JWT_SECRET"),

		Port:              getEnvOrDefault("PORT", "3000"),
		AppURL:            getEnvOrDefault("APP_URL", "http://localhost"),
		NotificationQueue: getEnvOrDefault("NOTIFICATION_QUEUE", "user_created"),
		CORSOrigins:       splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
		RateLimit:         getEnvIntOrDefault("RATE_LIMIT_PER_MINUTE", 0),

		DBConnectAttempts:    getEnvIntOrDefault("DB_CONNECT_ATTEMPTS", 5),
		DBRetryDelay:         getEnvDurationOrDefault("DB_RETRY_DELAY", 5*time.Second),
		DBAttemptTimeout:     getEnvDurationOrDefault("DB_ATTEMPT_TIMEOUT", 10*time.Second),
		BrokerConnectTimeout: getEnvDurationOrDefault("BROKER_CONNECT_TIMEOUT", 5*time.Second),
		RequestTimeout:       getEnvDurationOrDefault("REQUEST_TIMEOUT", 10*time.Second),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),

		Env:       getEnvOrDefault("ENV", "dev"),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),
	}

	var errs []error
	for _, required := range [][2]string{
		{"DATABASE_URL", cfg.DatabaseURL},
		{"RABBITMQ_URL", cfg.BrokerURL},
		{"JWT_SECRET", cfg.JWTSecret},
	} {
		if required[1] == "" {
			errs = append(errs, fmt.Errorf("%s environment variable is not set", required[0]))
		}
	}
	if cfg.DBConnectAttempts < 1 {
		errs = append(errs, fmt.Errorf("DB_CONNECT_ATTEMPTS must be at least 1, got %d", cfg.DBConnectAttempts))
	}
	return cfg, errors.Join(errs...)
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

// PublicURL is where the service says it is listening.
func (c Config) PublicURL() string {
	return strings.TrimRight(c.AppURL, "/") + ":" + c.Port
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	// bare integers are seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
