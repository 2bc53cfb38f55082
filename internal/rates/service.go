package rates

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/impexflow/backend-impex/internal/obs"
	"github.com/impexflow/backend-impex/internal/resilience"
)

// Service resolves the current exchange rates, preferring the cache, then the
// configured provider, then the static fallback.
type Service struct {
	provider Provider
	fallback StaticProvider
	cache    *Cache
	breaker  *resilience.Breaker
	logger   zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Provider Provider
	Fallback StaticProvider
	Cache    *Cache
	Breaker  *resilience.Breaker
	Logger   zerolog.Logger
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Fallback.USDZAR <= 0 || cfg.Fallback.EURZAR <= 0 {
		return nil, errors.New("rates: fallback rates are required")
	}
	return &Service{
		provider: cfg.Provider,
		fallback: cfg.Fallback,
		cache:    cfg.Cache,
		breaker:  cfg.Breaker,
		logger:   cfg.Logger,
	}, nil
}

// Current returns the freshest available quote. Provider failures degrade to
// the static fallback so callers always get usable rates.
func (s *Service) Current(ctx context.Context) (Quote, error) {
	if cached, ok, err := s.cache.Get(ctx); err == nil && ok {
		s.countLookup("cache")
		return cached, nil
	} else if err != nil {
		s.logger.Warn().Err(err).Msg("rates cache read failed")
	}

	if s.provider != nil && s.allowFetch() {
		quote, err := s.provider.Fetch(ctx)
		s.reportFetch(err == nil)
		if err == nil {
			if cacheErr := s.cache.Set(ctx, quote); cacheErr != nil {
				s.logger.Warn().Err(cacheErr).Msg("rates cache write failed")
			}
			s.countLookup("provider")
			return quote, nil
		}
		s.logger.Warn().Err(err).Msg("rates provider fetch failed, using fallback")
	}

	quote, err := s.fallback.Fetch(ctx)
	if err != nil {
		return Quote{}, fmt.Errorf("rates: fallback: %w", err)
	}
	s.countLookup("fallback")
	return quote, nil
}

func (s *Service) allowFetch() bool {
	if s.breaker == nil {
		return true
	}
	return s.breaker.Allow()
}

func (s *Service) reportFetch(success bool) {
	if s.breaker != nil {
		s.breaker.Report(success)
	}
}

func (s *Service) countLookup(source string) {
	if obs.RateLookupTotal != nil {
		obs.RateLookupTotal.WithLabelValues(source).Inc()
	}
}
