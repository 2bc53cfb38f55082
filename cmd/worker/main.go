package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/impexflow/backend-impex/internal/app"
	"github.com/impexflow/backend-impex/internal/common"
	"github.com/impexflow/backend-impex/internal/config"
	"github.com/impexflow/backend-impex/internal/events"
	"github.com/impexflow/backend-impex/internal/lock"
	"github.com/impexflow/backend-impex/internal/notify"
	"github.com/impexflow/backend-impex/internal/obs"
	"github.com/impexflow/backend-impex/internal/queue"
	"github.com/impexflow/backend-impex/internal/rates"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	obs.MustRegisterDomainMetrics(envOrDefault("OBS_METRICS_NAMESPACE", "impex"), nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	initCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	deps, err := app.New(initCtx, cfg, logger, app.Options{ServiceName: "impex-worker"})
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise dependencies")
	}
	defer deps.Close(logger)

	var mail common.EmailSender = common.NopEmailSender{}
	if cfg.EmailEnabled && cfg.SMTPAddr != "" {
		mail = common.SMTPSender{Addr: cfg.SMTPAddr, From: cfg.SMTPFrom}
	}

	deliveryWorker := queue.Worker{
		Client:            deps.Redis,
		Prefix:            cfg.QueueRedisPrefix,
		Kind:              notify.DeliveryTaskKind,
		Concurrency:       cfg.QueueConcurrencyNotify,
		VisibilityTimeout: cfg.QueueVisibilityTimeout,
		RetryBase:         cfg.QueueBackoffBase,
		RetryJitter:       cfg.QueueBackoffJitter,
		Handler:           notify.DeliveryHandler(notify.NewStore(deps.DB), mail, events.NewStore(deps.DB), logger),
		DLQ:               queue.NewStore(deps.DB),
		OnDeadLetter:      notify.CountDeadLetter,
	}

	if cfg.RatesProviderURL != "" {
		provider, err := rates.NewHTTPProvider(cfg.RatesProviderURL, 10*time.Second)
		if err != nil {
			logger.Fatal().Err(err).Msg("initialise rates provider")
		}
		go refreshRates(ctx, rateRefresher{
			provider: provider,
			cache:    rates.NewCache(deps.Redis, cfg.RatesCacheTTL),
			locker:   lock.Locker{Client: deps.Redis, TTL: cfg.LockTTL, RetryBackoff: cfg.LockRetryBackoff},
			interval: cfg.RatesCacheTTL,
			logger:   logger,
		})
	}

	logger.Info().Msg("worker starting")
	if err := deliveryWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("worker stopped with error")
	} else {
		logger.Info().Msg("worker shutdown complete")
	}
}

type rateRefresher struct {
	provider rates.Provider
	cache    *rates.Cache
	locker   lock.Locker
	interval time.Duration
	logger   zerolog.Logger
}

// refreshRates keeps the shared rate cache warm. The lock makes sure only
// one worker instance polls the provider per interval.
func refreshRates(ctx context.Context, r rateRefresher) {
	interval := r.interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		err := r.locker.WithLock(ctx, "impex:lock:rates-refresh", func(ctx context.Context) error {
			quote, err := r.provider.Fetch(ctx)
			if err != nil {
				return err
			}
			return r.cache.Set(ctx, quote)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Warn().Err(err).Msg("rates refresh failed")
		}
	}
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
