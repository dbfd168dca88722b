package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL())
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshTTL())
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, "log", cfg.Notify.Transport)
}

func TestLoadAdminBootstrap(t *testing.T) {
	t.Setenv("ADMIN_USERNAME", "root")
	t.Setenv("ADMIN_PASSWORD", "s3cret")

	cfg := Load()

	assert.Equal(t, AdminConfig{Username: "root", Password: "s3cret"}, cfg.Admin)
}

func TestServerConfigIsDevelopment(t *testing.T) {
	assert.True(t, ServerConfig{Env: "development"}.IsDevelopment())
	assert.True(t, ServerConfig{Env: "test"}.IsDevelopment())
	assert.False(t, ServerConfig{Env: "production"}.IsDevelopment())
}
