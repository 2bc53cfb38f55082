package shipment

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the shipment does not exist.
var ErrNotFound = errors.New("shipment: not found")

// ErrStoreUnavailable indicates the store dependency is not configured.
var ErrStoreUnavailable = errors.New("shipment: store unavailable")

// Shipment is a tracked import consignment.
type Shipment struct {
	ID          uuid.UUID  `json:"id"`
	Reference   string     `json:"reference"`
	EstimateID  *uuid.UUID `json:"estimate_id,omitempty"`
	SupplierID  *uuid.UUID `json:"supplier_id,omitempty"`
	VesselName  string     `json:"vessel_name,omitempty"`
	ContainerNo string     `json:"container_no,omitempty"`
	ETD         *time.Time `json:"etd,omitempty"`
	ETA         *time.Time `json:"eta,omitempty"`
	Status      Status     `json:"status"`
	LastEventAt *time.Time `json:"last_event_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Event is one entry in a shipment's tracking history.
type Event struct {
	ID          uuid.UUID `json:"id"`
	ShipmentID  uuid.UUID `json:"shipment_id"`
	Status      Status    `json:"status"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store provides database accessors for shipments and their events.
type Store interface {
	Insert(ctx context.Context, shp Shipment) (Shipment, error)
	GetByID(ctx context.Context, id uuid.UUID) (Shipment, error)
	List(ctx context.Context, status Status, limit, offset int) ([]Shipment, error)
	Count(ctx context.Context, status Status) (int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, eventAt time.Time) error
	InsertEvent(ctx context.Context, ev Event) (Event, error)
	ListEvents(ctx context.Context, shipmentID uuid.UUID) ([]Event, error)
}

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

type pgStore struct {
	pool *pgxpool.Pool
}

const shipmentColumns = `id, reference, estimate_id, supplier_id, vessel_name, container_no, etd, eta, status, last_event_at, created_at, updated_at`

func (s *pgStore) Insert(ctx context.Context, shp Shipment) (Shipment, error) {
	if s == nil || s.pool == nil {
		return Shipment{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `INSERT INTO shipments (reference, estimate_id, supplier_id, vessel_name, container_no, etd, eta, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING `+shipmentColumns,
		shp.Reference, shp.EstimateID, shp.SupplierID, shp.VesselName, shp.ContainerNo, shp.ETD, shp.ETA, string(shp.Status))
	return scanShipment(row)
}

func (s *pgStore) GetByID(ctx context.Context, id uuid.UUID) (Shipment, error) {
	if s == nil || s.pool == nil {
		return Shipment{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE id = $1`, id)
	shp, err := scanShipment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Shipment{}, ErrNotFound
	}
	return shp, err
}

func (s *pgStore) List(ctx context.Context, status Status, limit, offset int) ([]Shipment, error) {
	if s == nil || s.pool == nil {
		return nil, ErrStoreUnavailable
	}
	if limit < 1 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	var (
		rows pgx.Rows
		err  error
	)
	if status != "" {
		rows, err = s.pool.Query(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, string(status), limit, offset)
	} else {
		rows, err = s.pool.Query(ctx, `SELECT `+shipmentColumns+` FROM shipments ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shipments := make([]Shipment, 0, limit)
	for rows.Next() {
		shp, err := scanShipment(rows)
		if err != nil {
			return nil, err
		}
		shipments = append(shipments, shp)
	}
	return shipments, rows.Err()
}

func (s *pgStore) Count(ctx context.Context, status Status) (int64, error) {
	if s == nil || s.pool == nil {
		return 0, ErrStoreUnavailable
	}
	var total int64
	if status != "" {
		err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM shipments WHERE status = $1`, string(status)).Scan(&total)
		return total, err
	}
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM shipments`).Scan(&total)
	return total, err
}

func (s *pgStore) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, eventAt time.Time) error {
	if s == nil || s.pool == nil {
		return ErrStoreUnavailable
	}
	tag, err := s.pool.Exec(ctx, `UPDATE shipments SET status = $2, last_event_at = $3, updated_at = now() WHERE id = $1`,
		id, string(status), eventAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgStore) InsertEvent(ctx context.Context, ev Event) (Event, error) {
	if s == nil || s.pool == nil {
		return Event{}, ErrStoreUnavailable
	}
	var description, location any
	if ev.Description != "" {
		description = ev.Description
	}
	if ev.Location != "" {
		location = ev.Location
	}
	row := s.pool.QueryRow(ctx, `INSERT INTO shipment_events (shipment_id, status, description, location, occurred_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, shipment_id, status, description, location, occurred_at, created_at`,
		ev.ShipmentID, string(ev.Status), description, location, ev.OccurredAt)
	return scanEvent(row)
}

func (s *pgStore) ListEvents(ctx context.Context, shipmentID uuid.UUID) ([]Event, error) {
	if s == nil || s.pool == nil {
		return nil, ErrStoreUnavailable
	}
	rows, err := s.pool.Query(ctx, `SELECT id, shipment_id, status, description, location, occurred_at, created_at
FROM shipment_events WHERE shipment_id = $1 ORDER BY occurred_at`, shipmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func scanShipment(row pgx.Row) (Shipment, error) {
	var (
		shp    Shipment
		status string
	)
	err := row.Scan(&shp.ID, &shp.Reference, &shp.EstimateID, &shp.SupplierID, &shp.VesselName, &shp.ContainerNo,
		&shp.ETD, &shp.ETA, &status, &shp.LastEventAt, &shp.CreatedAt, &shp.UpdatedAt)
	if err != nil {
		return Shipment{}, err
	}
	shp.Status = Status(status)
	return shp, nil
}

func scanEvent(row pgx.Row) (Event, error) {
	var (
		ev          Event
		status      string
		description sql.NullString
		location    sql.NullString
	)
	err := row.Scan(&ev.ID, &ev.ShipmentID, &status, &description, &location, &ev.OccurredAt, &ev.CreatedAt)
	if err != nil {
		return Event{}, err
	}
	ev.Status = Status(status)
	if description.Valid {
		ev.Description = description.String
	}
	if location.Valid {
		ev.Location = location.String
	}
	return ev, nil
}
