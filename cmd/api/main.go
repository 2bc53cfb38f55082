package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"

	"github.com/impexflow/backend-impex/internal/app"
	"github.com/impexflow/backend-impex/internal/common"
	"github.com/impexflow/backend-impex/internal/config"
	"github.com/impexflow/backend-impex/internal/estimate"
	"github.com/impexflow/backend-impex/internal/events"
	"github.com/impexflow/backend-impex/internal/health"
	"github.com/impexflow/backend-impex/internal/notify"
	"github.com/impexflow/backend-impex/internal/obs"
	"github.com/impexflow/backend-impex/internal/queue"
	"github.com/impexflow/backend-impex/internal/ratelimit"
	"github.com/impexflow/backend-impex/internal/rates"
	"github.com/impexflow/backend-impex/internal/report"
	"github.com/impexflow/backend-impex/internal/resilience"
	"github.com/impexflow/backend-impex/internal/shipment"
	"github.com/impexflow/backend-impex/internal/supplier"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "impex")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "impex-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				ctx := context.Background()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	if envBool("RUN_MIGRATIONS", true) {
		source := envOrDefault("MIGRATIONS_URL", "file://migrations")
		if err := app.RunMigrations(source, cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	deps, err := app.New(ctx, cfg, logger, app.Options{
		ServiceName:   "impex-api",
		EnableMetrics: metricsEnabled,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise dependencies")
	}
	defer deps.Close(logger)

	if cfg.ROEFallbackUSDZAR <= 0 || cfg.ROEFallbackEURZAR <= 0 {
		logger.Fatal().Msg("ROE_FALLBACK_USDZAR and ROE_FALLBACK_EURZAR are required")
	}

	var ratesProvider rates.Provider
	if cfg.RatesProviderURL != "" {
		provider, err := rates.NewHTTPProvider(cfg.RatesProviderURL, 10*time.Second)
		if err != nil {
			logger.Fatal().Err(err).Msg("initialise rates provider")
		}
		ratesProvider = provider
	}
	ratesService, err := rates.NewService(rates.ServiceConfig{
		Provider: ratesProvider,
		Fallback: rates.StaticProvider{USDZAR: cfg.ROEFallbackUSDZAR, EURZAR: cfg.ROEFallbackEURZAR},
		Cache:    rates.NewCache(deps.Redis, cfg.RatesCacheTTL),
		Breaker:  resilience.NewBreaker("rates-provider", 5, 0.5, 30*time.Second, logger),
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rates service")
	}
	ratesHandler := rates.NewHandler(rates.HandlerConfig{Service: ratesService})

	taskQueue := queue.Enqueuer{
		Client:   deps.Redis,
		Prefix:   cfg.QueueRedisPrefix,
		DedupTTL: cfg.IdempotencyTTL,
	}
	dispatcher := notify.Dispatcher{
		Store:        notify.NewStore(deps.DB),
		Queue:        taskQueue,
		Recipient:    cfg.NotifyRecipient,
		Enabled:      cfg.EmailEnabled,
		TopicToggles: topicToggles(cfg.NotifyTopicsOff),
		MaxAttempts:  cfg.QueueMaxAttempts,
		Logger:       logger,
	}
	bus := &events.Bus{
		Store:     events.NewStore(deps.DB),
		Notifiers: []events.Notifier{dispatcher},
	}

	estimateService, err := estimate.NewService(estimate.ServiceConfig{
		Store:  estimate.NewStore(deps.DB),
		Bus:    bus,
		Quoter: ratesService,
		Defaults: estimate.Defaults{
			AgencyFeePercent: cfg.AgencyFeePercentDefault,
			AgencyFeeMinZAR:  cfg.AgencyFeeMinZARDefault,
		},
		Logger: logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise estimate service")
	}
	estimateHandler := estimate.NewHandler(estimate.HandlerConfig{
		Service:        estimateService,
		Validate:       deps.Validator,
		DefaultPerPage: cfg.DefaultPageSize,
		MaxPerPage:     cfg.MaxPageSize,
	})

	supplierHandler := supplier.NewHandler(supplier.HandlerConfig{
		Store:          supplier.NewStore(deps.DB),
		Validate:       deps.Validator,
		DefaultPerPage: cfg.DefaultPageSize,
		MaxPerPage:     cfg.MaxPageSize,
	})

	shipmentService, err := shipment.NewService(shipment.ServiceConfig{
		Store:  shipment.NewStore(deps.DB),
		Bus:    bus,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise shipment service")
	}
	shipmentHandler := shipment.NewHandler(shipment.HandlerConfig{
		Service:        shipmentService,
		Validate:       deps.Validator,
		DefaultPerPage: cfg.DefaultPageSize,
		MaxPerPage:     cfg.MaxPageSize,
	})

	notifyHandler := notify.NewHandler(notify.HandlerConfig{
		Store:          notify.NewStore(deps.DB),
		DefaultPerPage: cfg.DefaultPageSize,
		MaxPerPage:     cfg.MaxPageSize,
	})

	reportHandler := report.NewHandler(report.HandlerConfig{Store: report.NewStore(deps.DB)})

	idem := common.Idem{R: deps.Redis, TTL: cfg.IdempotencyTTL}
	limit := ratelimit.Middleware{
		Limiter: ratelimit.Limiter{Client: deps.Redis},
		Config: ratelimit.Config{
			Key:    common.ClientIP,
			Window: cfg.RateLimitWindow,
			Max:    cfg.RateLimitMax,
		},
		OnError: func(err error) {
			logger.Warn().Err(err).Msg("rate limit check failed")
		},
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", false) {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Checker:      readinessChecker{db: deps.DB, redis: deps.Redis},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(limit.Wrap)
		v.Use(idem.Middleware)

		v.Get("/rates", ratesHandler.Current)
		v.Mount("/estimates", estimateHandler.Routes())
		v.Mount("/suppliers", supplierHandler.Routes())
		v.Mount("/shipments", shipmentHandler.Routes())
		v.Mount("/notifications", notifyHandler.Routes())
		v.Mount("/reports", reportHandler.Routes())
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func topicToggles(off []string) map[string]bool {
	if len(off) == 0 {
		return nil
	}
	toggles := make(map[string]bool, len(off))
	for _, topic := range off {
		toggles[topic] = false
	}
	return toggles
}

type readinessChecker struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func (c readinessChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	if c.db == nil {
		return errors.New("db not configured")
	}
	return app.PingWithTimeout(ctx, timeout, c.db.Ping)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	return app.PingWithTimeout(ctx, timeout, func(ctx context.Context) error {
		return c.redis.Ping(ctx).Err()
	})
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/mutex", pprof.Handler("mutex"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
