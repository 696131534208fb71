package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/integraldb/internal/core"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/integraldb")
	t.Setenv("GOOGLE_API_KEY", "key")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequired(t)
	for _, k := range []string{"CHUNK_SIZE", "CHUNK_OVERLAP", "EMBED_MODEL", "UPDATE_INTERVAL", "SYNC_WORKERS", "CACHE_BACKEND"} {
		t.Setenv(k, "")
	}

	cfg := LoadConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 200, cfg.ChunkOverlap)
	assert.Equal(t, "text-embedding-004", cfg.EmbedModel)
	assert.Equal(t, time.Hour, cfg.UpdateInterval)
	assert.Equal(t, 1, cfg.SyncWorkers)
	assert.Equal(t, CacheLocal, cfg.CacheBackend)
}

func TestLoadConfig_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("CHUNK_SIZE", "500")
	t.Setenv("CHUNK_OVERLAP", "50")
	t.Setenv("UPDATE_INTERVAL", "120")
	t.Setenv("EMBED_RATE_LIMIT_BACKOFF", "250ms")
	t.Setenv("ENABLE_DRIVE", "false")
	t.Setenv("CORS_ORIGINS", "http://a, http://b")

	cfg := LoadConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, 50, cfg.ChunkOverlap)
	assert.Equal(t, 2*time.Minute, cfg.UpdateInterval)
	assert.Equal(t, 250*time.Millisecond, cfg.EmbedRateLimitBackoff)
	assert.False(t, cfg.EnableDrive)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.CORSOrigins)
}

func TestLoadConfig_QuotedValuesAndAliases(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SUPABASE_DB_URL", `"postgres://db/x"`)
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "'gem'")

	cfg := LoadConfig()
	assert.Equal(t, "postgres://db/x", cfg.DatabaseURL)
	assert.Equal(t, "gem", cfg.AIAPIKey)
}

func TestLoadConfig_BadIntFallsBack(t *testing.T) {
	setRequired(t)
	t.Setenv("CHUNK_SIZE", "lots")

	cfg := LoadConfig()
	assert.Equal(t, 1000, cfg.ChunkSize)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		problem string
	}{
		{"missing database", func(c *Config) { c.DatabaseURL = "" }, "DATABASE_URL"},
		{"missing api key", func(c *Config) { c.AIAPIKey = "" }, "GOOGLE_API_KEY"},
		{"overlap equals size", func(c *Config) { c.ChunkOverlap = c.ChunkSize }, "CHUNK_OVERLAP"},
		{"no origins", func(c *Config) { c.EnableGmail, c.EnableDrive = false, false }, "ENABLE_GMAIL"},
		{"s3 without bucket", func(c *Config) {
			c.CacheBackend = CacheS3
			c.AwsAccessKey, c.AwsSecretKey = "a", "b"
		}, "BUCKET_NAME"},
		{"unknown cache", func(c *Config) { c.CacheBackend = "ftp" }, "CACHE_BACKEND"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setRequired(t)
			cfg := LoadConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrConfiguration)
			assert.Contains(t, err.Error(), tc.problem)
		})
	}
}
