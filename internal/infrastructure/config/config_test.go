package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "GlucoMeal", cfg.App.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "http://localhost:3000", cfg.Backend.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "glucomeal-session", cfg.Session.CookieName)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, 30*time.Minute, cfg.Redis.CacheTTL)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("GLUCOMEAL_BACKEND_BASE_URL", "http://wellness-api:9000")
	t.Setenv("GLUCOMEAL_SERVER_PORT", "9090")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://wellness-api:9000", cfg.Backend.BaseURL)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:     AppConfig{Name: "GlucoMeal"},
			Server:  ServerConfig{Port: 8080},
			Backend: BackendConfig{BaseURL: "http://localhost:3000"},
		}
	}

	t.Run("valid config passes", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("missing app name", func(t *testing.T) {
		cfg := valid()
		cfg.App.Name = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing backend url", func(t *testing.T) {
		cfg := valid()
		cfg.Backend.BaseURL = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("port out of range", func(t *testing.T) {
		cfg := valid()
		cfg.Server.Port = 0
		assert.Error(t, cfg.Validate())

		cfg.Server.Port = 70000
		assert.Error(t, cfg.Validate())
	})
}

func TestEnvironmentHelpers(t *testing.T) {
	cfg := &Config{App: AppConfig{Environment: "production"}}
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.IsDevelopment())

	cfg.App.Environment = "development"
	assert.False(t, cfg.IsProduction())
	assert.True(t, cfg.IsDevelopment())
}
