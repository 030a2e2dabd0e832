package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ORDER_NUMBER_PREFIX", "ZEN")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "https://zen.store, https://admin.zen.store")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "ZEN", cfg.Ledger.OrderNumberPrefix)
	assert.Equal(t, []string{"https://zen.store", "https://admin.zen.store"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 10*time.Minute, cfg.TwoFactor.CodeTTL)
	assert.Equal(t, 5*time.Second, cfg.Notification.Timeout)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.True(t, cfg.IsDevelopment())
}

func TestIsDevelopment(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Env: "production"}}
	assert.False(t, cfg.IsDevelopment())
}
