package config_test

import (
	"testing"
	"time"

	"pairchat/backend/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "DB_DRIVER", "REDIS_URL", "CORS_ORIGIN", "MAX_UPLOAD_MB", "WS_PONG_WAIT", "PUBLIC_BASE_URL"} {
		t.Setenv(key, "")
	}

	cfg := config.Load()

	assert.Equal(t, "4000", cfg.Port)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.True(t, cfg.IsDevelopment())
	assert.Empty(t, cfg.RedisURL)
	assert.Equal(t, int64(8*1024*1024), cfg.MaxUploadBytes)
	assert.Equal(t, 60*time.Second, cfg.PongWait)
	assert.Equal(t, 54*time.Second, cfg.PingPeriod())
	assert.Equal(t, "http://localhost:4000", cfg.PublicBaseURL)
	assert.Contains(t, cfg.AllowedImageMIME, "image/png")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("MAX_UPLOAD_MB", "2")
	t.Setenv("WS_PONG_WAIT", "10s")
	t.Setenv("CORS_ORIGIN", " https://a.example , ,https://b.example")
	t.Setenv("PUBLIC_BASE_URL", "https://chat.example/")

	cfg := config.Load()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, int64(2*1024*1024), cfg.MaxUploadBytes)
	assert.Equal(t, 10*time.Second, cfg.PongWait)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "https://chat.example", cfg.PublicBaseURL)
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("MAX_UPLOAD_MB", "lots")
	t.Setenv("WS_PONG_WAIT", "-5s")

	cfg := config.Load()

	assert.Equal(t, int64(config.DefaultMaxUploadMB*1024*1024), cfg.MaxUploadBytes)
	assert.Equal(t, config.DefaultPongWait, cfg.PongWait)
}

func TestConfig_AllowOrigin(t *testing.T) {
	cfg := &config.Config{CORSOrigins: []string{"http://localhost:5173"}}

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:5173", true},
		{"https://my-app.vercel.app", true},
		{"https://evil.example", false},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.AllowOrigin(tt.origin))
		})
	}
}
