// Package main is the entrypoint for the Linkgate API server.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/linkgate/linkgate/internal/analytics"
	"github.com/linkgate/linkgate/internal/cache"
	"github.com/linkgate/linkgate/internal/config"
	"github.com/linkgate/linkgate/internal/engine"
	"github.com/linkgate/linkgate/internal/geo"
	"github.com/linkgate/linkgate/internal/handler"
	"github.com/linkgate/linkgate/internal/metrics"
	"github.com/linkgate/linkgate/internal/middleware"
	"github.com/linkgate/linkgate/internal/repository"
	"github.com/linkgate/linkgate/internal/server"
	"github.com/linkgate/linkgate/internal/service"
	"github.com/linkgate/linkgate/internal/session"
	"github.com/linkgate/linkgate/internal/visitor"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	// Database
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	// Cache and tracking stream
	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	// Metrics. Development serves an in-memory snapshot so the endpoint
	// works without a scrape pipeline; production registers with Prometheus.
	var recorder metrics.Recorder
	var metricsEndpoint http.Handler
	if cfg.IsDevelopment() {
		mem := metrics.NewInMemory()
		recorder = mem
		metricsEndpoint = http.HandlerFunc(handler.NewMetricsHandler(mem).Metrics)
	} else {
		recorder = metrics.NewPrometheus(prometheus.DefaultRegisterer)
		metricsEndpoint = promhttp.Handler()
	}

	// Services
	registryService := service.NewRegistryService(repo, cacheClient, recorder)
	resolver := engine.NewResolver(registryService, cfg.SiteRootURL, recorder)
	geoClient := geo.NewClient(cfg.GeoAPIURL, cfg.GeoTimeout, logger, recorder)
	visitorResolver := visitor.NewResolver(geoClient)
	sessionManager := session.NewManager(cfg.IsProduction())
	publisher := analytics.NewPublisher(cacheClient.Client(), logger, recorder)

	// Tracking worker: consumes the Redis stream and applies events to the
	// Postgres ledger.
	worker := analytics.NewWorker(cacheClient.Client(), repo, logger, analytics.NewConsumerID(), recorder)
	workerCtx, stopWorker := context.WithCancel(ctx)
	go func() {
		if err := worker.Run(workerCtx); err != nil && workerCtx.Err() == nil {
			logger.Error("tracking worker stopped", "error", err)
		}
	}()

	// Handlers
	h := handler.New()
	healthHandler := handler.NewHealthHandler(repo, cacheClient)
	recordHandler := handler.NewRecordHandler(registryService, cfg.BaseURL, logger)
	redirectHandler := handler.NewRedirectHandler(resolver, visitorResolver, sessionManager, publisher, cfg.SiteRootURL, logger)
	trackingHandler := handler.NewTrackingHandler(visitorResolver, sessionManager, publisher, logger)
	analyticsHandler := handler.NewAnalyticsHandler(repo, logger)
	apiKeyHandler := handler.NewAPIKeyHandler(logger, repo)

	r := setupRouter(routerDeps{
		base:      h,
		health:    healthHandler,
		records:   recordHandler,
		redirect:  redirectHandler,
		tracking:  trackingHandler,
		analytics: analyticsHandler,
		apiKeys:   apiKeyHandler,
		metrics:   metricsEndpoint,
		repo:      repo,
		cache:     cacheClient,
		cfg:       cfg,
		logger:    logger,
	})

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	srv.OnShutdown("tracking worker", func(ctx context.Context) error {
		stopWorker()
		return worker.Shutdown(ctx)
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"base_url", cfg.BaseURL,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type routerDeps struct {
	base      *handler.Handler
	health    *handler.HealthHandler
	records   *handler.RecordHandler
	redirect  *handler.RedirectHandler
	tracking  *handler.TrackingHandler
	analytics *handler.AnalyticsHandler
	apiKeys   *handler.APIKeyHandler
	metrics   http.Handler
	repo      *repository.Repository
	cache     *cache.Cache
	cfg       *config.Config
	logger    *slog.Logger
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(deps routerDeps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.logger))
	r.Use(middleware.Recoverer(deps.logger))
	r.Use(middleware.Security(middleware.DefaultSecurityConfig()))
	r.Use(middleware.MaxBodySize(deps.cfg.MaxRequestBodySize))

	// Health endpoints (no auth required)
	r.Get("/healthz", deps.health.Healthz)
	r.Get("/readyz", deps.health.Readyz)
	r.Handle("/metrics", deps.metrics)

	// Root info endpoint
	r.Get("/", deps.base.Root)

	authCfg := middleware.AuthConfig{
		Logger:     deps.logger,
		Repository: deps.repo,
		Cache:      deps.cache,
	}

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:          deps.logger,
		Cache:           deps.cache,
		APIEnabled:      deps.cfg.RateLimitAPIEnabled,
		RedirectEnabled: deps.cfg.RateLimitRedirectEnabled,
		RedirectRPS:     deps.cfg.RateLimitRedirectRPS,
		RedirectBurst:   deps.cfg.RateLimitRedirectBurst,
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = deps.cfg.GetCORSAllowedOrigins()
	corsCfg.AllowCredentials = true // tracking endpoints ride the session cookie

	// Public visitor API: consumed cross-origin by the content site.
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.CORS(corsCfg))
			r.Use(middleware.RateLimitIP(rateLimitCfg))

			r.Post("/userinfo", deps.tracking.UserInfo)
			r.Post("/track/pageview", deps.tracking.PageView)
			r.Get("/results/{page}", deps.records.Results)
		})

		// Admin API (API key required)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(authCfg))
			r.Use(middleware.RateLimitAPI(rateLimitCfg))

			r.Route("/records", func(r chi.Router) {
				r.With(middleware.RequireRead()).Get("/", deps.records.List)
				r.With(middleware.RequireRead()).Get("/{lid}", deps.records.Get)
				r.With(middleware.RequireWrite()).Post("/", deps.records.Create)
				r.With(middleware.RequireWrite()).Patch("/{lid}", deps.records.Update)
				r.With(middleware.RequireAdmin()).Delete("/{lid}", deps.records.Delete)
			})

			r.Route("/admin", func(r chi.Router) {
				r.With(middleware.RequireRead()).Get("/sessions", deps.analytics.ListSessions)
				r.With(middleware.RequireRead()).Get("/sessions/{session_id}", deps.analytics.GetSession)
				r.With(middleware.RequireAdmin()).Delete("/sessions", deps.analytics.PurgeSessions)
				r.With(middleware.RequireRead()).Get("/clicks", deps.analytics.ListClicks)
				r.With(middleware.RequireAdmin()).Delete("/clicks", deps.analytics.PurgeClicks)

				r.Route("/api-keys", func(r chi.Router) {
					r.With(middleware.RequireRead()).Get("/", deps.apiKeys.ListAPIKeys)
					r.With(middleware.RequireAdmin()).Post("/", deps.apiKeys.CreateAPIKey)
					r.With(middleware.RequireAdmin()).Delete("/{key_id}", deps.apiKeys.RevokeAPIKey)
					r.With(middleware.RequireAdmin()).Post("/{key_id}/rotate", deps.apiKeys.RotateAPIKey)
				})
			})
		})
	})

	// Redirect endpoint with IP-based rate limiting (no auth required)
	r.With(middleware.RateLimitIP(rateLimitCfg)).Get("/lid/{lid}", deps.redirect.Redirect)

	// 404 and 405 handlers
	r.NotFound(deps.base.NotFound)
	r.MethodNotAllowed(deps.base.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
