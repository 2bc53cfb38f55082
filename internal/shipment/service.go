package shipment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/impexflow/backend-impex/internal/events"
	"github.com/impexflow/backend-impex/internal/obs"
)

// ErrInvalidTransition is returned when a status update would break the
// tracking state machine.
var ErrInvalidTransition = errors.New("shipment: invalid status transition")

// ErrUnknownStatus is returned for statuses outside the tracking vocabulary.
var ErrUnknownStatus = errors.New("shipment: unknown status")

// Service coordinates shipment booking and tracking updates.
type Service struct {
	store  Store
	bus    *events.Bus
	logger zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store  Store
	Bus    *events.Bus
	Logger zerolog.Logger
}

// BookInput is the payload for registering a new shipment.
type BookInput struct {
	Reference   string     `json:"reference" validate:"required,min=1,max=120"`
	EstimateID  *uuid.UUID `json:"estimate_id,omitempty"`
	SupplierID  *uuid.UUID `json:"supplier_id,omitempty"`
	VesselName  string     `json:"vessel_name,omitempty" validate:"max=200"`
	ContainerNo string     `json:"container_no,omitempty" validate:"max=40"`
	ETD         *time.Time `json:"etd,omitempty"`
	ETA         *time.Time `json:"eta,omitempty"`
}

// EventInput is the payload for a tracking update.
type EventInput struct {
	Status      Status     `json:"status" validate:"required"`
	Description string     `json:"description,omitempty" validate:"max=500"`
	Location    string     `json:"location,omitempty" validate:"max=200"`
	OccurredAt  *time.Time `json:"occurred_at,omitempty"`
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("shipment: store is required")
	}
	return &Service{store: cfg.Store, bus: cfg.Bus, logger: cfg.Logger}, nil
}

// Book registers a shipment in the BOOKED state.
func (s *Service) Book(ctx context.Context, in BookInput) (Shipment, error) {
	shp, err := s.store.Insert(ctx, Shipment{
		Reference:   strings.TrimSpace(in.Reference),
		EstimateID:  in.EstimateID,
		SupplierID:  in.SupplierID,
		VesselName:  strings.TrimSpace(in.VesselName),
		ContainerNo: strings.TrimSpace(in.ContainerNo),
		ETD:         in.ETD,
		ETA:         in.ETA,
		Status:      StatusBooked,
	})
	if err != nil {
		return Shipment{}, fmt.Errorf("shipment: insert: %w", err)
	}
	s.countEvent(StatusBooked)
	s.emit(ctx, events.TopicShipmentBooked, shp, StatusBooked, "")
	return shp, nil
}

// AppendEvent records a tracking event and advances the shipment state
// machine.
func (s *Service) AppendEvent(ctx context.Context, shipmentID uuid.UUID, in EventInput) (Event, Shipment, error) {
	if !in.Status.Valid() {
		return Event{}, Shipment{}, ErrUnknownStatus
	}
	shp, err := s.store.GetByID(ctx, shipmentID)
	if err != nil {
		return Event{}, Shipment{}, err
	}
	if !allowedTransition(shp.Status, in.Status) {
		return Event{}, shp, ErrInvalidTransition
	}
	occurredAt := time.Now().UTC()
	if in.OccurredAt != nil {
		occurredAt = in.OccurredAt.UTC()
	}
	event, err := s.store.InsertEvent(ctx, Event{
		ShipmentID:  shp.ID,
		Status:      in.Status,
		Description: strings.TrimSpace(in.Description),
		Location:    strings.TrimSpace(in.Location),
		OccurredAt:  occurredAt,
	})
	if err != nil {
		return Event{}, shp, fmt.Errorf("shipment: insert event: %w", err)
	}
	if err := s.store.UpdateStatus(ctx, shp.ID, in.Status, occurredAt); err != nil {
		return event, shp, fmt.Errorf("shipment: update status: %w", err)
	}
	shp.Status = in.Status
	shp.LastEventAt = &occurredAt

	s.countEvent(in.Status)
	s.emit(ctx, events.TopicShipmentStatusChanged, shp, in.Status, event.Location)
	return event, shp, nil
}

// Get fetches one shipment by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Shipment, error) {
	return s.store.GetByID(ctx, id)
}

// List returns a page of shipments, optionally filtered by status.
func (s *Service) List(ctx context.Context, status Status, limit, offset int) ([]Shipment, int64, error) {
	if status != "" && !status.Valid() {
		return nil, 0, ErrUnknownStatus
	}
	items, err := s.store.List(ctx, status, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("shipment: list: %w", err)
	}
	total, err := s.store.Count(ctx, status)
	if err != nil {
		return nil, 0, fmt.Errorf("shipment: count: %w", err)
	}
	return items, total, nil
}

// History returns a shipment's tracking events in chronological order.
func (s *Service) History(ctx context.Context, id uuid.UUID) ([]Event, error) {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListEvents(ctx, id)
}

func (s *Service) countEvent(status Status) {
	if obs.ShipmentEventTotal != nil {
		obs.ShipmentEventTotal.WithLabelValues(string(status)).Inc()
	}
}

func (s *Service) emit(ctx context.Context, topic string, shp Shipment, status Status, location string) {
	if s.bus == nil {
		return
	}
	payload := map[string]any{
		"reference": shp.Reference,
		"status":    string(status),
	}
	if location != "" {
		payload["location"] = location
	}
	if shp.SupplierID != nil {
		payload["supplier_id"] = shp.SupplierID.String()
	}
	if _, err := s.bus.Emit(ctx, topic, shp.ID, payload); err != nil {
		s.logger.Warn().Err(err).Str("topic", topic).Str("shipment_id", shp.ID.String()).Msg("event emit failed")
	}
}
