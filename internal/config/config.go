// Package config loads the server configuration from command-line flags, an
// optional JSON file and the environment (including a .env file), in that
// order of increasing precedence.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

// Options holds the configuration values for the application.
type Options struct {
	// Addr defines the server's listening address (ip:port).
	Addr string

	// BotTokens lists the bot tokens accepted for init data signatures, in
	// the order they are tried.
	BotTokens []string

	// Diagnostics enables POST /debug/verify.
	Diagnostics bool
	// RequireVerification rejects init data whose signature is not checked.
	// Switching it off is for local development only.
	RequireVerification bool
	// InitDataMaxAge bounds the age of auth_date; zero disables the check.
	InitDataMaxAge time.Duration

	RateLimitRequests int
	RateLimitWindow   time.Duration

	// MaxScore is the highest accepted score.
	MaxScore int64

	// Storage selects the leaderboard backend: memory, postgres or redis.
	Storage string
	// DatabaseDSN holds the database connection string for the application.
	DatabaseDSN   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CORSOrigins []string

	// ReadRatePerSec and ReadBurst size the process-wide throttle of the
	// public read routes. A zero rate disables it.
	ReadRatePerSec float64
	ReadBurst      int

	LogLevel string

	// AppURL is the Mini App address opened by the launcher bot.
	AppURL string

	// Config is the path to the Config file.
	Config string
}

// fileConfig mirrors Options in the JSON config file. Absent keys keep the
// current value.
type fileConfig struct {
	Addr                *string  `json:"addr"`
	BotTokens           []string `json:"bot_tokens"`
	Diagnostics         *bool    `json:"debug_mode"`
	RequireVerification *bool    `json:"require_init_data"`
	InitDataMaxAge      *string  `json:"init_data_max_age"`
	RateLimitRequests   *int     `json:"rate_limit_requests"`
	RateLimitWindow     *string  `json:"rate_limit_window"`
	MaxScore            *int64   `json:"max_score"`
	Storage             *string  `json:"storage"`
	DatabaseDSN         *string  `json:"database_dsn"`
	RedisAddr           *string  `json:"redis_addr"`
	RedisPassword       *string  `json:"redis_password"`
	RedisDB             *int     `json:"redis_db"`
	CORSOrigins         []string `json:"cors_origins"`
	ReadRatePerSec      *float64 `json:"read_rate_per_sec"`
	ReadBurst           *int     `json:"read_burst"`
	LogLevel            *string  `json:"log_level"`
	AppURL              *string  `json:"app_url"`
}

// Parse loads the configuration from os.Args and the environment and exits
// on error.
func Parse() *Options {
	opts, err := Load(os.Args[1:])
	if err != nil {
		log.Fatalf("error while loading config: %v", err)
	}
	return opts
}

// Load parses args, then the JSON config file if it exists, then the .env
// file and the environment.
func Load(args []string) (*Options, error) {
	opts := &Options{}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&opts.Addr, "a", ":8080", "run on ip:port server")
	fs.StringVar(&opts.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&opts.Storage, "storage", StorageMemory, "leaderboard storage: memory, postgres or redis")
	fs.StringVar(&opts.LogLevel, "l", "info", "log level")
	fs.StringVar(&opts.Config, "config", "config.json", "path to config file")
	fs.StringVar(&opts.Config, "c", "config.json", "path to config file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	opts.RequireVerification = true
	opts.InitDataMaxAge = 24 * time.Hour
	opts.RateLimitRequests = 30
	opts.RateLimitWindow = time.Minute
	opts.MaxScore = 1_000_000
	opts.RedisAddr = "localhost:6379"
	opts.CORSOrigins = []string{"*"}
	opts.ReadRatePerSec = 50
	opts.ReadBurst = 100

	// A missing .env is normal outside development.
	_ = godotenv.Load()

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		opts.Config = configPath
	}
	if opts.Config != "" {
		if _, err := os.Stat(opts.Config); err == nil {
			if err := opts.loadFile(opts.Config); err != nil {
				return nil, err
			}
		}
	}

	if err := opts.loadEnv(); err != nil {
		return nil, err
	}
	return opts, nil
}

func (o *Options) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error while reading config file: %w", err)
	}
	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}

	setIf(&o.Addr, fc.Addr)
	setIf(&o.Diagnostics, fc.Diagnostics)
	setIf(&o.RequireVerification, fc.RequireVerification)
	setIf(&o.RateLimitRequests, fc.RateLimitRequests)
	setIf(&o.MaxScore, fc.MaxScore)
	setIf(&o.Storage, fc.Storage)
	setIf(&o.DatabaseDSN, fc.DatabaseDSN)
	setIf(&o.RedisAddr, fc.RedisAddr)
	setIf(&o.RedisPassword, fc.RedisPassword)
	setIf(&o.RedisDB, fc.RedisDB)
	setIf(&o.ReadRatePerSec, fc.ReadRatePerSec)
	setIf(&o.ReadBurst, fc.ReadBurst)
	setIf(&o.LogLevel, fc.LogLevel)
	setIf(&o.AppURL, fc.AppURL)
	if fc.BotTokens != nil {
		o.BotTokens = fc.BotTokens
	}
	if fc.CORSOrigins != nil {
		o.CORSOrigins = fc.CORSOrigins
	}

	for _, d := range []struct {
		key string
		raw *string
		dst *time.Duration
	}{
		{"init_data_max_age", fc.InitDataMaxAge, &o.InitDataMaxAge},
		{"rate_limit_window", fc.RateLimitWindow, &o.RateLimitWindow},
	} {
		if d.raw == nil {
			continue
		}
		v, err := time.ParseDuration(*d.raw)
		if err != nil {
			return fmt.Errorf("config file %s: %w", d.key, err)
		}
		*d.dst = v
	}
	return nil
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func (o *Options) loadEnv() error {
	env := &envReader{}

	if port := os.Getenv("PORT"); port != "" {
		o.Addr = ":" + port
	}
	env.str("SERVER_ADDRESS", &o.Addr)

	var tokens []string
	if t := strings.TrimSpace(os.Getenv("BOT_TOKEN")); t != "" {
		tokens = append(tokens, t)
	}
	tokens = append(tokens, splitList(os.Getenv("BOT_TOKENS"))...)
	if len(tokens) > 0 {
		o.BotTokens = dedupe(tokens)
	}

	env.boolean("DEBUG_MODE", &o.Diagnostics)
	env.boolean("REQUIRE_INIT_DATA", &o.RequireVerification)
	env.duration("INIT_DATA_MAX_AGE", &o.InitDataMaxAge)
	env.integer("RATE_LIMIT_REQUESTS", &o.RateLimitRequests)
	env.duration("RATE_LIMIT_WINDOW", &o.RateLimitWindow)
	env.int64("MAX_SCORE", &o.MaxScore)
	env.str("STORAGE", &o.Storage)
	env.str("DATABASE_DSN", &o.DatabaseDSN)
	env.str("REDIS_ADDR", &o.RedisAddr)
	env.str("REDIS_PASSWORD", &o.RedisPassword)
	env.integer("REDIS_DB", &o.RedisDB)
	env.float("READ_RATE_PER_SEC", &o.ReadRatePerSec)
	env.integer("READ_BURST", &o.ReadBurst)
	env.str("LOG_LEVEL", &o.LogLevel)
	env.str("APP_URL", &o.AppURL)
	if origins := splitList(os.Getenv("CORS_ORIGINS")); len(origins) > 0 {
		o.CORSOrigins = origins
	}

	return env.err
}

// Validate reports the first inconsistency in the options.
func (o *Options) Validate() error {
	switch {
	case o.Addr == "":
		return errors.New("listen address is empty")
	case o.RequireVerification && len(o.BotTokens) == 0:
		return errors.New("init data verification is required but no bot token is configured")
	case o.InitDataMaxAge < 0:
		return errors.New("init data max age must not be negative")
	case o.RateLimitRequests <= 0:
		return fmt.Errorf("rate limit requests must be positive, got %d", o.RateLimitRequests)
	case o.RateLimitWindow <= 0:
		return fmt.Errorf("rate limit window must be positive, got %s", o.RateLimitWindow)
	case o.MaxScore < 0:
		return fmt.Errorf("max score must not be negative, got %d", o.MaxScore)
	case o.ReadRatePerSec < 0 || o.ReadBurst < 0:
		return errors.New("read throttle settings must not be negative")
	}

	switch o.Storage {
	case StorageMemory:
	case StoragePostgres:
		if o.DatabaseDSN == "" {
			return errors.New("postgres storage requires a database DSN")
		}
	case StorageRedis:
		if o.RedisAddr == "" {
			return errors.New("redis storage requires a redis address")
		}
	default:
		return fmt.Errorf("unknown storage %q", o.Storage)
	}
	return nil
}

// envReader copies set environment variables into their destinations and
// keeps the first parse error.
type envReader struct {
	err error
}

func (r *envReader) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" || r.err != nil {
		return "", false
	}
	return v, true
}

func (r *envReader) fail(key, value string, err error) {
	r.err = fmt.Errorf("env %s=%q: %w", key, value, err)
}

func (r *envReader) str(key string, dst *string) {
	if v, ok := r.lookup(key); ok {
		*dst = v
	}
}

func (r *envReader) boolean(key string, dst *bool) {
	if v, ok := r.lookup(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			r.fail(key, v, err)
			return
		}
		*dst = b
	}
}

func (r *envReader) integer(key string, dst *int) {
	if v, ok := r.lookup(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			r.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (r *envReader) int64(key string, dst *int64) {
	if v, ok := r.lookup(key); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			r.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (r *envReader) float(key string, dst *float64) {
	if v, ok := r.lookup(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			r.fail(key, v, err)
			return
		}
		*dst = f
	}
}

func (r *envReader) duration(key string, dst *time.Duration) {
	if v, ok := r.lookup(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			r.fail(key, v, err)
			return
		}
		*dst = d
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
