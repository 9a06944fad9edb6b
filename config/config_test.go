package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsFromEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "a")
	t.Setenv("JWT_REFRESH_SECRET", "b")
	t.Setenv("ALLOWED_ORIGINS", "https://shop.test, https://admin.test,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.RefreshTTL)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, []string{"https://shop.test", "https://admin.test"}, cfg.AllowedOrigins)
	assert.Equal(t, ImagesNone, cfg.ImageStore)
	assert.Equal(t, 4, cfg.MaxProductImages)
	assert.Equal(t, 20, cfg.QueryLimits.Default)
	assert.Equal(t, 100, cfg.QueryLimits.Max)
	assert.Equal(t, []string{".jpg", ".jpeg", ".png", ".webp"}, cfg.AllowedFileExtensions)
}

func TestLoadFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
store_driver: memory
jwt_secret: file-secret
jwt_refresh_secret: file-refresh
port: "9090"
rate_limit_per_minute: 10
`), 0o600))

	t.Setenv("CONFIG_FILE", file)
	t.Setenv("PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "file-secret", cfg.JWTSecret)
	assert.Equal(t, 10, cfg.RateLimitPerMinute)
	// environment wins over the file
	assert.Equal(t, "7070", cfg.Port)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		v, err := newViper("")
		require.NoError(t, err)
		cfg := fromViper(v)
		cfg.StoreDriver = StoreMemory
		cfg.JWTSecret, cfg.JWTRefreshSecret = "a", "b"
		return cfg
	}
	require.NoError(t, valid().Validate())

	cases := map[string]func(*Config){
		"missing secrets":   func(c *Config) { c.JWTSecret = "" },
		"mongo needs uri":   func(c *Config) { c.StoreDriver = StoreMongo },
		"unknown driver":    func(c *Config) { c.StoreDriver = "sqlite" },
		"gcs needs bucket":  func(c *Config) { c.ImageStore = ImagesGCS },
		"r2 needs keys":     func(c *Config) { c.ImageStore = ImagesR2; c.R2.Bucket = "b" },
		"unknown images":    func(c *Config) { c.ImageStore = "s3" },
		"admin half set":    func(c *Config) { c.AdminEmail = "root@example.com" },
		"oidc needs client": func(c *Config) { c.OIDCIssuer = "https://accounts.google.com" },
		"limits inverted":   func(c *Config) { c.QueryLimits.Max = 5 },
		"zero ttl":          func(c *Config) { c.AccessTTL = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Empty(t, splitList(""))
	assert.Equal(t, []string{"a", "b"}, splitList(" a ,, b "))
}
