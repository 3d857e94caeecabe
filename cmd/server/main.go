// Package main starts the leaderboard HTTP server, wiring configuration,
// logging, storage, rate limiting, services and handlers.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/Otar989/bugman-bot/internal/config"
	"github.com/Otar989/bugman-bot/internal/db"
	"github.com/Otar989/bugman-bot/internal/initdata"
	"github.com/Otar989/bugman-bot/internal/logger"
	"github.com/Otar989/bugman-bot/internal/metrics"
	"github.com/Otar989/bugman-bot/internal/ratelimit"
	"github.com/Otar989/bugman-bot/internal/repository"
	"github.com/Otar989/bugman-bot/internal/server/handler/http"
	"github.com/Otar989/bugman-bot/internal/service"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line, file and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	if err := options.Validate(); err != nil {
		zapLogger.Fatal("invalid configuration", zap.Error(err))
	}
	if !options.RequireVerification {
		zapLogger.Warn("init data verification is disabled; submissions are not authenticated")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open the leaderboard backend and the matching rate limiter.
	backend, err := openBackend(ctx, options, zapLogger)
	if err != nil {
		zapLogger.Fatal("cannot init storage", zap.Error(err), zap.String("storage", options.Storage))
	}
	defer backend.close()

	// Initialize business-logic services.
	verifier := initdata.NewVerifier(options.BotTokens, initdata.WithMaxAge(options.InitDataMaxAge))
	leaderboardService := service.NewLeaderboardService(backend.repo, options.MaxScore)
	intakeService := service.NewIntakeService(verifier, backend.limiter, leaderboardService, options.RequireVerification)

	m := metrics.New()

	// Create HTTP handlers.
	scoreHandler := &http.ScoreHandler{
		IntakeService: intakeService,
		RetryAfter:    options.RateLimitWindow,
		Metrics:       m,
		Logger:        zapLogger,
	}
	leaderboardHandler := &http.LeaderboardHandler{
		LeaderboardService: leaderboardService,
		Metrics:            m,
		Logger:             zapLogger,
	}
	debugHandler := &http.DebugHandler{Verifier: verifier, Logger: zapLogger}

	routerCfg := http.RouterConfig{
		Diagnostics: options.Diagnostics,
		CORSOrigins: options.CORSOrigins,
		Metrics:     m,
	}
	if options.ReadRatePerSec > 0 {
		routerCfg.ReadLimiter = rate.NewLimiter(rate.Limit(options.ReadRatePerSec), max(options.ReadBurst, 1))
	}

	// Build the router with middleware and routes.
	router := http.NewRouter(scoreHandler, leaderboardHandler, debugHandler, routerCfg, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		zapLogger.Info("starting HTTP server",
			zap.String("addr", options.Addr),
			zap.String("storage", options.Storage),
			zap.Bool("diagnostics", options.Diagnostics),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server forced to shutdown", zap.Error(err))
	}
}

// backend bundles the leaderboard repository with the rate limiter that
// shares its deployment model.
type backend struct {
	repo    service.LeaderboardRepository
	limiter ratelimit.Limiter
	close   func()
}

func openBackend(ctx context.Context, options *config.Options, zapLogger *zap.Logger) (*backend, error) {
	switch options.Storage {
	case config.StoragePostgres:
		postgresDB, err := db.InitPostgres(options.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		return &backend{
			repo:    repository.NewPostgresLeaderboardRepository(postgresDB),
			limiter: memoryLimiter(ctx, options, zapLogger),
			close:   func() { _ = postgresDB.Close() },
		}, nil

	case config.StorageRedis:
		client, err := db.InitRedis(ctx, db.RedisConfig{
			Addr:     options.RedisAddr,
			Password: options.RedisPassword,
			DB:       options.RedisDB,
		}, 5*time.Second)
		if err != nil {
			return nil, err
		}
		return &backend{
			repo:    repository.NewRedisLeaderboardRepository(client),
			limiter: ratelimit.NewRedisFixedWindow(client, options.RateLimitRequests, options.RateLimitWindow),
			close:   func() { _ = client.Close() },
		}, nil

	default:
		return &backend{
			repo:    repository.NewMemoryLeaderboardRepository(),
			limiter: memoryLimiter(ctx, options, zapLogger),
			close:   func() {},
		}, nil
	}
}

func memoryLimiter(ctx context.Context, options *config.Options, zapLogger *zap.Logger) *ratelimit.FixedWindow {
	limiter := ratelimit.NewFixedWindow(options.RateLimitRequests, options.RateLimitWindow)
	ratelimit.StartJanitor(ctx, limiter, options.RateLimitWindow, zapLogger)
	return limiter
}

