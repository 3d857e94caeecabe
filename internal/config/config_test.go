package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"CONFIG", "PORT", "SERVER_ADDRESS", "BOT_TOKEN", "BOT_TOKENS", "DEBUG_MODE",
	"REQUIRE_INIT_DATA", "INIT_DATA_MAX_AGE", "RATE_LIMIT_REQUESTS", "RATE_LIMIT_WINDOW",
	"MAX_SCORE", "STORAGE", "DATABASE_DSN", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"CORS_ORIGINS", "READ_RATE_PER_SEC", "READ_BURST", "LOG_LEVEL", "APP_URL",
}

// clearEnv blanks every variable Load reads; empty values count as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	opts, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", opts.Addr)
	assert.Equal(t, StorageMemory, opts.Storage)
	assert.True(t, opts.RequireVerification)
	assert.False(t, opts.Diagnostics)
	assert.Equal(t, 24*time.Hour, opts.InitDataMaxAge)
	assert.Equal(t, 30, opts.RateLimitRequests)
	assert.Equal(t, time.Minute, opts.RateLimitWindow)
	assert.Equal(t, int64(1_000_000), opts.MaxScore)
	assert.Equal(t, []string{"*"}, opts.CORSOrigins)
	assert.Equal(t, "info", opts.LogLevel)
	assert.Empty(t, opts.BotTokens)
}

func TestLoad_Flags(t *testing.T) {
	clearEnv(t)

	opts, err := Load([]string{"-a", "127.0.0.1:9000", "-d", "postgres://x", "-storage", "postgres", "-l", "debug"})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", opts.Addr)
	assert.Equal(t, "postgres://x", opts.DatabaseDSN)
	assert.Equal(t, StoragePostgres, opts.Storage)
	assert.Equal(t, "debug", opts.LogLevel)
}

func TestLoad_UnknownFlag(t *testing.T) {
	clearEnv(t)

	_, err := Load([]string{"-nope"})
	assert.Error(t, err)
}

func TestLoad_Env(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("BOT_TOKEN", "main")
	t.Setenv("BOT_TOKENS", "old, main ,staging,")
	t.Setenv("DEBUG_MODE", "true")
	t.Setenv("REQUIRE_INIT_DATA", "false")
	t.Setenv("INIT_DATA_MAX_AGE", "1h")
	t.Setenv("RATE_LIMIT_REQUESTS", "5")
	t.Setenv("RATE_LIMIT_WINDOW", "10s")
	t.Setenv("MAX_SCORE", "500")
	t.Setenv("STORAGE", "redis")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("READ_RATE_PER_SEC", "2.5")
	t.Setenv("APP_URL", "https://game.example")

	opts, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, ":9090", opts.Addr)
	assert.Equal(t, []string{"main", "old", "staging"}, opts.BotTokens)
	assert.True(t, opts.Diagnostics)
	assert.False(t, opts.RequireVerification)
	assert.Equal(t, time.Hour, opts.InitDataMaxAge)
	assert.Equal(t, 5, opts.RateLimitRequests)
	assert.Equal(t, 10*time.Second, opts.RateLimitWindow)
	assert.Equal(t, int64(500), opts.MaxScore)
	assert.Equal(t, StorageRedis, opts.Storage)
	assert.Equal(t, "redis:6379", opts.RedisAddr)
	assert.Equal(t, 2, opts.RedisDB)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, opts.CORSOrigins)
	assert.Equal(t, 2.5, opts.ReadRatePerSec)
	assert.Equal(t, "https://game.example", opts.AppURL)
}

func TestLoad_ServerAddressWinsOverPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("SERVER_ADDRESS", "0.0.0.0:7000")

	opts, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:7000", opts.Addr)
}

func TestLoad_BadEnv(t *testing.T) {
	for key, value := range map[string]string{
		"DEBUG_MODE":          "maybe",
		"RATE_LIMIT_REQUESTS": "lots",
		"RATE_LIMIT_WINDOW":   "60",
		"MAX_SCORE":           "1e9",
		"READ_RATE_PER_SEC":   "fast",
	} {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)

			_, err := Load(nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"addr": ":7070",
		"bot_tokens": ["from-file"],
		"rate_limit_window": "30s",
		"max_score": 999,
		"debug_mode": true
	}`), 0o600))

	opts, err := Load([]string{"-c", path})
	require.NoError(t, err)
	assert.Equal(t, ":7070", opts.Addr)
	assert.Equal(t, []string{"from-file"}, opts.BotTokens)
	assert.Equal(t, 30*time.Second, opts.RateLimitWindow)
	assert.Equal(t, int64(999), opts.MaxScore)
	assert.True(t, opts.Diagnostics)
	assert.Equal(t, 30, opts.RateLimitRequests, "absent keys keep defaults")

	t.Setenv("MAX_SCORE", "10")
	opts, err = Load([]string{"-c", path})
	require.NoError(t, err)
	assert.Equal(t, int64(10), opts.MaxScore, "environment overrides the file")
}

func TestLoad_FileErrors(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{"addr":`), 0o600))
	_, err := Load([]string{"-c", broken})
	assert.Error(t, err)

	badDuration := filepath.Join(dir, "duration.json")
	require.NoError(t, os.WriteFile(badDuration, []byte(`{"init_data_max_age":"a day"}`), 0o600))
	_, err = Load([]string{"-c", badDuration})
	assert.ErrorContains(t, err, "init_data_max_age")

	_, err = Load([]string{"-c", filepath.Join(dir, "missing.json")})
	assert.NoError(t, err, "a missing config file is ignored")
}

func TestValidate(t *testing.T) {
	valid := func() *Options {
		return &Options{
			Addr:                ":8080",
			BotTokens:           []string{"T1"},
			RequireVerification: true,
			InitDataMaxAge:      time.Hour,
			RateLimitRequests:   10,
			RateLimitWindow:     time.Minute,
			MaxScore:            100,
			Storage:             StorageMemory,
		}
	}

	tests := []struct {
		name    string
		mutate  func(o *Options)
		wantErr bool
	}{
		{"valid", func(*Options) {}, false},
		{"no tokens", func(o *Options) { o.BotTokens = nil }, true},
		{"no tokens without verification", func(o *Options) { o.BotTokens = nil; o.RequireVerification = false }, false},
		{"zero limit", func(o *Options) { o.RateLimitRequests = 0 }, true},
		{"zero window", func(o *Options) { o.RateLimitWindow = 0 }, true},
		{"negative max age", func(o *Options) { o.InitDataMaxAge = -time.Second }, true},
		{"negative max score", func(o *Options) { o.MaxScore = -1 }, true},
		{"zero max score", func(o *Options) { o.MaxScore = 0 }, false},
		{"negative burst", func(o *Options) { o.ReadBurst = -1 }, true},
		{"unknown storage", func(o *Options) { o.Storage = "sqlite" }, true},
		{"postgres without dsn", func(o *Options) { o.Storage = StoragePostgres }, true},
		{"postgres with dsn", func(o *Options) { o.Storage = StoragePostgres; o.DatabaseDSN = "postgres://" }, false},
		{"redis without addr", func(o *Options) { o.Storage = StorageRedis }, true},
		{"redis with addr", func(o *Options) { o.Storage = StorageRedis; o.RedisAddr = "localhost:6379" }, false},
		{"empty addr", func(o *Options) { o.Addr = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := valid()
			tt.mutate(o)
			err := o.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
