package http

import (
	"net/http"

	"github.com/Otar989/bugman-bot/internal/metrics"
	"github.com/Otar989/bugman-bot/internal/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RouterConfig carries the router settings that are not handlers.
type RouterConfig struct {
	// Diagnostics mounts POST /debug/verify when true.
	Diagnostics bool
	// CORSOrigins lists the allowed origins; empty means "*".
	CORSOrigins []string
	// ReadLimiter throttles the public read and debug routes; nil disables it.
	ReadLimiter *rate.Limiter
	Metrics     *metrics.Metrics
}

// NewRouter constructs the HTTP handler of the leaderboard API.
//
// Routes:
//
//	POST /score          → scoreHandler.Submit
//	GET  /leaderboard    → leaderboardHandler.Top (throttled)
//	POST /debug/verify   → debugHandler.Verify (diagnostic mode only, throttled)
//	GET  /healthz        → HealthHandler
//	GET  /metrics        → Prometheus exposition
//
// Every route passes RequestID, Recoverer, request logging and CORS; POST
// routes additionally require Content-Type: application/json.
func NewRouter(
	scoreHandler *ScoreHandler,
	leaderboardHandler *LeaderboardHandler,
	debugHandler *DebugHandler,
	cfg RouterConfig,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(corsHandler(cfg.CORSOrigins))

	throttle := func(next http.Handler) http.Handler { return next }
	if cfg.ReadLimiter != nil {
		throttle = middleware.Throttle(cfg.ReadLimiter, cfg.Metrics.Throttled.Inc)
	}

	r.Get("/healthz", HealthHandler)
	r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())

	r.With(chiMiddleware.AllowContentType("application/json")).
		Post("/score", scoreHandler.Submit)

	r.With(throttle).Get("/leaderboard", leaderboardHandler.Top)

	if cfg.Diagnostics {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireDiagnostics(cfg.Diagnostics))
			r.Use(throttle)
			r.Use(chiMiddleware.AllowContentType("application/json"))
			r.Post("/debug/verify", debugHandler.Verify)
		})
	}

	return r
}

func corsHandler(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler
}
