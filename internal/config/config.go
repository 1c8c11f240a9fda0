// Package config loads the server configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// Heartbeat
	DefaultPongWait        = 60 * time.Second
	DefaultMaxMessageBytes = 64 * 1024

	// Uploads
	DefaultMaxUploadMB      = 8
	DefaultAllowedImageMIME = "image/jpeg,image/png,image/webp,image/gif,image/heic,image/heif,image/avif,image/svg+xml"

	// History
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500

	// Tokens
	TokenTTL    = 72 * time.Hour
	TokenIssuer = "pairchat-service"
)

// Config holds all configuration for the application.
type Config struct {
	Port string
	Env  string

	DBDriver    string
	DatabaseURL string
	RedisURL    string // optional, enables cross-instance fan-out

	CORSOrigins []string
	JWTSecret   string

	UploadDir        string
	PublicBaseURL    string
	MaxUploadBytes   int64
	AllowedImageMIME []string

	PongWait        time.Duration
	MaxMessageBytes int64
}

// Load reads configuration from environment variables.
// A .env file is loaded first when present. In production missing required
// variables panic.
func Load() *Config {
	_ = godotenv.Load()

	port := getEnv("PORT", "4000")
	cfg := &Config{
		Port:             port,
		Env:              getEnv("ENV", "development"),
		DBDriver:         getEnv("DB_DRIVER", "postgres"),
		DatabaseURL:      getEnv("DATABASE_URL", "host=localhost user=user password=password dbname=pairchat port=5432 sslmode=disable"),
		RedisURL:         os.Getenv("REDIS_URL"),
		CORSOrigins:      splitList(getEnv("CORS_ORIGIN", "http://localhost:5173,http://127.0.0.1:5173")),
		JWTSecret:        getEnv("JWT_SECRET", "dev-secret-change-me"),
		UploadDir:        getEnv("UPLOAD_DIR", "uploads"),
		PublicBaseURL:    strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:"+port), "/"),
		MaxUploadBytes:   int64(getEnvInt("MAX_UPLOAD_MB", DefaultMaxUploadMB)) * 1024 * 1024,
		AllowedImageMIME: splitList(getEnv("ALLOWED_IMAGE_MIME", DefaultAllowedImageMIME)),
		PongWait:         getEnvDuration("WS_PONG_WAIT", DefaultPongWait),
		MaxMessageBytes:  int64(getEnvInt("WS_MAX_MESSAGE_BYTES", DefaultMaxMessageBytes)),
	}

	if cfg.Env == "production" {
		if os.Getenv("DATABASE_URL") == "" {
			panic("DATABASE_URL is required in production")
		}
		if os.Getenv("JWT_SECRET") == "" {
			panic("JWT_SECRET is required in production")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// PingPeriod is how often the server pings a client; it must stay below PongWait.
func (c *Config) PingPeriod() time.Duration {
	return (c.PongWait * 9) / 10
}

// AllowOrigin decides whether a browser origin may talk to the API and the
// websocket endpoint. Requests without an Origin header are allowed.
func (c *Config) AllowOrigin(origin string) bool {
	if origin == "" {
		return true
	}
	for _, allowed := range c.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return strings.HasSuffix(origin, ".vercel.app")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			out = append(out, entry)
		}
	}
	return out
}
