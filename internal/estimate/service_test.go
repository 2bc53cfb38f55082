package estimate

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/impexflow/backend-impex/internal/costing"
	"github.com/impexflow/backend-impex/internal/events"
	"github.com/impexflow/backend-impex/internal/rates"
)

type memStore struct {
	byID map[uuid.UUID]Estimate
}

func newMemStore() *memStore {
	return &memStore{byID: make(map[uuid.UUID]Estimate)}
}

func (m *memStore) Insert(_ context.Context, est Estimate) (Estimate, error) {
	est.ID = uuid.New()
	est.CreatedAt = time.Now().UTC()
	est.UpdatedAt = est.CreatedAt
	m.byID[est.ID] = est
	return est, nil
}

func (m *memStore) Update(_ context.Context, est Estimate) (Estimate, error) {
	existing, ok := m.byID[est.ID]
	if !ok {
		return Estimate{}, ErrNotFound
	}
	est.CreatedAt = existing.CreatedAt
	est.UpdatedAt = time.Now().UTC()
	m.byID[est.ID] = est
	return est, nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (Estimate, error) {
	est, ok := m.byID[id]
	if !ok {
		return Estimate{}, ErrNotFound
	}
	return est, nil
}

func (m *memStore) List(_ context.Context, supplierID *uuid.UUID, _, _ int) ([]Estimate, error) {
	var out []Estimate
	for _, est := range m.byID {
		if supplierID != nil && (est.SupplierID == nil || *est.SupplierID != *supplierID) {
			continue
		}
		out = append(out, est)
	}
	return out, nil
}

func (m *memStore) Count(ctx context.Context, supplierID *uuid.UUID) (int64, error) {
	items, _ := m.List(ctx, supplierID, 0, 0)
	return int64(len(items)), nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.byID[id]; !ok {
		return ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type memEventStore struct {
	events []events.Event
}

func (m *memEventStore) InsertEvent(_ context.Context, topic string, aggregateID uuid.UUID, payload []byte) (events.Event, error) {
	event := events.Event{ID: uuid.New(), Topic: topic, AggregateID: aggregateID, Payload: payload, OccurredAt: time.Now().UTC()}
	m.events = append(m.events, event)
	return event, nil
}

type fixedQuoter struct {
	quote rates.Quote
}

func (q fixedQuoter) Current(_ context.Context) (rates.Quote, error) {
	return q.quote, nil
}

func newTestService(t *testing.T) (*Service, *memStore, *memEventStore) {
	t.Helper()
	store := newMemStore()
	eventStore := &memEventStore{}
	svc, err := NewService(ServiceConfig{
		Store:    store,
		Bus:      &events.Bus{Store: eventStore},
		Quoter:   fixedQuoter{quote: rates.Quote{USDZAR: 18.5, EURZAR: 19.9}},
		Defaults: Defaults{AgencyFeePercent: 3.5, AgencyFeeMinZAR: 1187},
		Logger:   zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, store, eventStore
}

func TestCreateFillsRatesAndDefaults(t *testing.T) {
	svc, _, eventStore := newTestService(t)

	est, err := svc.Create(context.Background(), Input{
		Reference: "IMP-2024-001",
		Costing: costing.CostEstimate{
			OriginChargeUSD: 1000,
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if est.Input.Rates.ROEOrigin != 18.5 {
		t.Fatalf("usd rate = %v, want filled from quoter", est.Input.Rates.ROEOrigin)
	}
	if est.Input.AgencyFeePercent != 3.5 || est.Input.AgencyFeeMinZAR != 1187 {
		t.Fatalf("agency defaults not applied: %v / %v", est.Input.AgencyFeePercent, est.Input.AgencyFeeMinZAR)
	}
	// customs value 1000 * 18.5, percentage fee below the floor
	if est.Totals.CustomsValueZAR != 18500 {
		t.Fatalf("customs value = %v", est.Totals.CustomsValueZAR)
	}
	if est.Totals.AgencyFeeZAR != 1187 {
		t.Fatalf("agency fee = %v", est.Totals.AgencyFeeZAR)
	}
	if len(eventStore.events) != 1 || eventStore.events[0].Topic != events.TopicEstimateCreated {
		t.Fatalf("expected one estimate.created event, got %v", eventStore.events)
	}
}

func TestCreateKeepsPinnedRates(t *testing.T) {
	svc, _, _ := newTestService(t)

	est, err := svc.Create(context.Background(), Input{
		Reference: "IMP-2024-002",
		Costing: costing.CostEstimate{
			Rates:           costing.Rates{ROEOrigin: 17.0, ROEEur: 18.0},
			OriginChargeUSD: 100,
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if est.Input.Rates.ROEOrigin != 17.0 || est.Input.Rates.ROEEur != 18.0 {
		t.Fatalf("pinned rates were overwritten: %+v", est.Input.Rates)
	}
}

func TestCreateDerivesProductInvoiceValues(t *testing.T) {
	svc, _, _ := newTestService(t)

	est, err := svc.Create(context.Background(), Input{
		Reference: "IMP-2024-003",
		Costing: costing.CostEstimate{
			Products: []costing.ProductLine{
				{Name: " Chicken Leg Quarters ", WeightKg: 1000, RatePerKg: 1.2},
				{Name: "Beef Trim", WeightKg: 500, RatePerKg: 2, InvoiceValue: 900, Currency: costing.CurrencyEUR},
			},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	first := est.Input.Products[0]
	if first.Name != "Chicken Leg Quarters" {
		t.Fatalf("name not trimmed: %q", first.Name)
	}
	if first.InvoiceValue != 1200 {
		t.Fatalf("derived invoice value = %v, want 1200", first.InvoiceValue)
	}
	if first.Currency != costing.CurrencyUSD {
		t.Fatalf("default currency = %q", first.Currency)
	}
	// an explicit invoice value is never recomputed
	if est.Input.Products[1].InvoiceValue != 900 {
		t.Fatalf("explicit invoice value overwritten: %v", est.Input.Products[1].InvoiceValue)
	}
}

func TestUpdateMissingEstimate(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Update(context.Background(), uuid.New(), Input{Reference: "IMP-2024-004"})
	if err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateRecalculatesTotals(t *testing.T) {
	svc, _, eventStore := newTestService(t)

	created, err := svc.Create(context.Background(), Input{
		Reference: "IMP-2024-005",
		Costing:   costing.CostEstimate{OriginChargeUSD: 100},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	updated, err := svc.Update(context.Background(), created.ID, Input{
		Reference: "IMP-2024-005",
		Costing:   costing.CostEstimate{OriginChargeUSD: 200},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Totals.CustomsValueZAR != 200*18.5 {
		t.Fatalf("customs value = %v", updated.Totals.CustomsValueZAR)
	}
	if len(eventStore.events) != 2 || eventStore.events[1].Topic != events.TopicEstimateUpdated {
		t.Fatalf("expected estimate.updated event, got %v", eventStore.events)
	}
}

func TestPreviewDoesNotPersist(t *testing.T) {
	svc, store, eventStore := newTestService(t)

	totals, err := svc.Preview(context.Background(), Input{
		Reference: "IMP-2024-006",
		Costing:   costing.CostEstimate{OriginChargeUSD: 1000},
	})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if totals.CustomsValueZAR != 18500 {
		t.Fatalf("customs value = %v", totals.CustomsValueZAR)
	}
	if len(store.byID) != 0 {
		t.Fatalf("preview persisted %d estimates", len(store.byID))
	}
	if len(eventStore.events) != 0 {
		t.Fatalf("preview emitted %d events", len(eventStore.events))
	}
}
