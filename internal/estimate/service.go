package estimate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/impexflow/backend-impex/internal/costing"
	"github.com/impexflow/backend-impex/internal/events"
	"github.com/impexflow/backend-impex/internal/obs"
	"github.com/impexflow/backend-impex/internal/rates"
)

// Quoter supplies current exchange rates for estimates that do not pin their
// own.
type Quoter interface {
	Current(ctx context.Context) (rates.Quote, error)
}

// Defaults are applied to estimates that leave agency fee fields unset.
type Defaults struct {
	AgencyFeePercent float64
	AgencyFeeMinZAR  float64
}

// Input is the request payload for creating, updating, or previewing an
// estimate.
type Input struct {
	Reference    string               `json:"reference" validate:"required,min=1,max=120"`
	SupplierID   *uuid.UUID           `json:"supplier_id,omitempty"`
	SupplierName string               `json:"supplier_name,omitempty" validate:"max=200"`
	Costing      costing.CostEstimate `json:"costing"`
}

// Service orchestrates landed-cost calculation and persistence.
type Service struct {
	store    Store
	bus      *events.Bus
	quoter   Quoter
	defaults Defaults
	logger   zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store    Store
	Bus      *events.Bus
	Quoter   Quoter
	Defaults Defaults
	Logger   zerolog.Logger
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("estimate: store is required")
	}
	return &Service{
		store:    cfg.Store,
		bus:      cfg.Bus,
		quoter:   cfg.Quoter,
		defaults: cfg.Defaults,
		logger:   cfg.Logger,
	}, nil
}

// Preview calculates totals for the given input without persisting anything.
func (s *Service) Preview(ctx context.Context, in Input) (costing.Totals, error) {
	form := s.normalize(ctx, in)
	return s.calculate(form, "preview"), nil
}

// Create calculates totals and persists a new estimate.
func (s *Service) Create(ctx context.Context, in Input) (Estimate, error) {
	form := s.normalize(ctx, in)
	totals := s.calculate(form, "create")
	est, err := s.store.Insert(ctx, Estimate{
		Reference:    strings.TrimSpace(in.Reference),
		SupplierID:   in.SupplierID,
		SupplierName: strings.TrimSpace(in.SupplierName),
		Input:        form,
		Totals:       totals,
	})
	if err != nil {
		return Estimate{}, fmt.Errorf("estimate: insert: %w", err)
	}
	s.emit(ctx, events.TopicEstimateCreated, est)
	return est, nil
}

// Update recalculates and replaces an existing estimate.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in Input) (Estimate, error) {
	form := s.normalize(ctx, in)
	totals := s.calculate(form, "update")
	est, err := s.store.Update(ctx, Estimate{
		ID:           id,
		Reference:    strings.TrimSpace(in.Reference),
		SupplierID:   in.SupplierID,
		SupplierName: strings.TrimSpace(in.SupplierName),
		Input:        form,
		Totals:       totals,
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Estimate{}, err
		}
		return Estimate{}, fmt.Errorf("estimate: update: %w", err)
	}
	s.emit(ctx, events.TopicEstimateUpdated, est)
	return est, nil
}

// Get fetches one estimate by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Estimate, error) {
	return s.store.GetByID(ctx, id)
}

// List returns a page of estimates, optionally scoped to one supplier.
func (s *Service) List(ctx context.Context, supplierID *uuid.UUID, limit, offset int) ([]Estimate, int64, error) {
	items, err := s.store.List(ctx, supplierID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("estimate: list: %w", err)
	}
	total, err := s.store.Count(ctx, supplierID)
	if err != nil {
		return nil, 0, fmt.Errorf("estimate: count: %w", err)
	}
	return items, total, nil
}

// Delete removes an estimate.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.Delete(ctx, id)
}

// normalize fills gaps a costing form is allowed to leave open: exchange
// rates from the rate service, agency fee defaults, and invoice values
// derived from weight and rate-per-kg.
func (s *Service) normalize(ctx context.Context, in Input) costing.CostEstimate {
	form := in.Costing
	form.Reference = strings.TrimSpace(in.Reference)
	if name := strings.TrimSpace(in.SupplierName); name != "" {
		form.SupplierName = name
	}

	if form.Rates.ROEOrigin <= 0 || form.Rates.ROEEur <= 0 {
		if s.quoter != nil {
			if quote, err := s.quoter.Current(ctx); err == nil {
				if form.Rates.ROEOrigin <= 0 {
					form.Rates.ROEOrigin = quote.USDZAR
				}
				if form.Rates.ROEEur <= 0 {
					form.Rates.ROEEur = quote.EURZAR
				}
			} else {
				s.logger.Warn().Err(err).Msg("rate lookup failed, leaving estimate rates as submitted")
			}
		}
	}

	if form.AgencyFeePercent <= 0 {
		form.AgencyFeePercent = s.defaults.AgencyFeePercent
	}
	if form.AgencyFeeMinZAR <= 0 {
		form.AgencyFeeMinZAR = s.defaults.AgencyFeeMinZAR
	}

	for i := range form.Products {
		p := &form.Products[i]
		p.Name = strings.TrimSpace(p.Name)
		if p.InvoiceValue <= 0 && p.WeightKg > 0 && p.RatePerKg > 0 {
			p.InvoiceValue = costing.DeriveInvoiceValue(p.WeightKg, p.RatePerKg)
		}
		if p.Currency == "" {
			p.Currency = costing.CurrencyUSD
		}
	}
	return form
}

func (s *Service) calculate(form costing.CostEstimate, trigger string) costing.Totals {
	start := time.Now()
	totals := costing.CalculateAllTotals(form)
	if obs.EstimateComputeDuration != nil {
		obs.EstimateComputeDuration.Observe(obs.DurationMillis(time.Since(start)))
	}
	if obs.EstimateComputeTotal != nil {
		obs.EstimateComputeTotal.WithLabelValues(trigger, "ok").Inc()
	}
	return totals
}

func (s *Service) emit(ctx context.Context, topic string, est Estimate) {
	if s.bus == nil {
		return
	}
	payload := map[string]any{
		"reference":       est.Reference,
		"supplier_name":   est.SupplierName,
		"total_cost_zar":  est.Totals.TotalInWarehouseCostZAR,
		"total_weight_kg": est.Totals.TotalWeightKg,
	}
	if _, err := s.bus.Emit(ctx, topic, est.ID, payload); err != nil {
		s.logger.Warn().Err(err).Str("topic", topic).Str("estimate_id", est.ID.String()).Msg("event emit failed")
	}
}
