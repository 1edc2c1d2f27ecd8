package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.RateLimit.MaxRequests)
	assert.Equal(t, time.Hour, cfg.RateLimit.Window)
	assert.Equal(t, 10*time.Minute, cfg.RateLimit.SweepInterval)
	assert.Equal(t, BackendMemory, cfg.RateLimit.Backend)
	assert.Equal(t, 10*time.Second, cfg.Catalog.Timeout)
	assert.Equal(t, 2*time.Minute, cfg.Cache.SearchTTL)
	assert.Equal(t, "search.completed", cfg.NATS.Subject)
	assert.True(t, cfg.Persistence.Enabled)
	assert.Empty(t, cfg.App.ProxyHeader)
	assert.Empty(t, cfg.App.TrustedProxies)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "config.yaml")
	yaml := []byte("rate_limit:\n  max_requests: 5\n  window: 1m\ncatalog:\n  api_key: from-file\n")
	require.NoError(t, os.WriteFile(path, yaml, 0o600))

	t.Setenv("APP_CATALOG_API_KEY", "from-env")
	t.Setenv("APP_APP_PROXY_HEADER", "X-Forwarded-For")
	t.Setenv("APP_APP_TRUSTED_PROXIES", "10.0.0.1,10.0.0.0/8")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.RateLimit.MaxRequests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, "from-env", cfg.Catalog.APIKey)
	assert.Equal(t, "X-Forwarded-For", cfg.App.ProxyHeader)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.0/8"}, cfg.App.TrustedProxies)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("APP_AUTH_ISSUER=dotenv-issuer\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("APP_AUTH_ISSUER") })

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "dotenv-issuer", cfg.Auth.Issuer)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Catalog:   CatalogConfig{BaseURL: "http://catalog"},
			RateLimit: RateLimitConfig{MaxRequests: 1, Window: time.Second, SweepInterval: time.Minute, Backend: BackendRedis},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"unknown backend", func(c *Config) { c.RateLimit.Backend = "etcd" }, false},
		{"zero requests", func(c *Config) { c.RateLimit.MaxRequests = 0 }, false},
		{"zero window", func(c *Config) { c.RateLimit.Window = 0 }, false},
		{"zero sweep interval", func(c *Config) { c.RateLimit.SweepInterval = 0 }, false},
		{"no catalog", func(c *Config) { c.Catalog.BaseURL = "" }, false},
		{"proxy header without trusted proxies", func(c *Config) { c.App.ProxyHeader = "X-Forwarded-For" }, false},
		{"proxy header with trusted proxies", func(c *Config) {
			c.App.ProxyHeader = "X-Forwarded-For"
			c.App.TrustedProxies = []string{"10.0.0.1"}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
