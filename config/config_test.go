package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Database.Type)
	assert.Equal(t, 2*time.Second, cfg.Database.OperationTimeout)
	assert.Equal(t, "none", cfg.Cache.Type)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "linkly:short_code", cfg.Cache.Namespace)
	assert.Equal(t, 50*time.Millisecond, cfg.Cache.OperationTimeout)
	assert.True(t, cfg.Cache.WarmOnCreate)
	assert.Equal(t, "http://localhost:8080", cfg.App.BaseURL)
	assert.Equal(t, 100, cfg.App.DefaultListLimit)
	assert.Equal(t, "async", cfg.Visits.Mode)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CACHE_TYPE", "memory")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("CACHE_NAMESPACE", "test")
	t.Setenv("APP_BASE_URL", "https://lnk.ly")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Cache.Type)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "test", cfg.Cache.Namespace)
	assert.Equal(t, "https://lnk.ly", cfg.App.BaseURL)
	assert.True(t, cfg.CacheEnabled())
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Database: DatabaseConfig{Type: "memory", OperationTimeout: 2 * time.Second},
			Cache:    CacheConfig{Type: "redis", OperationTimeout: 50 * time.Millisecond},
			Visits:   VisitsConfig{Mode: "async"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{
			name:    "unknown database",
			mutate:  func(c *Config) { c.Database.Type = "mongo" },
			wantErr: "unsupported database type",
		},
		{
			name:    "postgres without url",
			mutate:  func(c *Config) { c.Database.Type = "postgres" },
			wantErr: "database.postgres.url",
		},
		{
			name:    "unknown cache",
			mutate:  func(c *Config) { c.Cache.Type = "memcached" },
			wantErr: "unsupported cache type",
		},
		{
			name:    "cache slower than store",
			mutate:  func(c *Config) { c.Cache.OperationTimeout = 3 * time.Second },
			wantErr: "must be shorter",
		},
		{
			name:    "unknown visits mode",
			mutate:  func(c *Config) { c.Visits.Mode = "batch" },
			wantErr: "unsupported visits mode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
