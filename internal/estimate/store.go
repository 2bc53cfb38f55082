package estimate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/impexflow/backend-impex/internal/costing"
)

// ErrNotFound indicates the estimate does not exist.
var ErrNotFound = errors.New("estimate: not found")

// ErrStoreUnavailable indicates the store dependency is not configured.
var ErrStoreUnavailable = errors.New("estimate: store unavailable")

// Estimate is a persisted costing record. Input holds the form as captured,
// Totals the derived figures at the time of the last calculation.
type Estimate struct {
	ID           uuid.UUID            `json:"id"`
	Reference    string               `json:"reference"`
	SupplierID   *uuid.UUID           `json:"supplier_id,omitempty"`
	SupplierName string               `json:"supplier_name,omitempty"`
	Input        costing.CostEstimate `json:"input"`
	Totals       costing.Totals       `json:"totals"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// Store provides database accessors for estimates.
type Store interface {
	Insert(ctx context.Context, est Estimate) (Estimate, error)
	Update(ctx context.Context, est Estimate) (Estimate, error)
	GetByID(ctx context.Context, id uuid.UUID) (Estimate, error)
	List(ctx context.Context, supplierID *uuid.UUID, limit, offset int) ([]Estimate, error)
	Count(ctx context.Context, supplierID *uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

type pgStore struct {
	pool *pgxpool.Pool
}

const estimateColumns = `id, reference, supplier_id, supplier_name, input, totals, total_cost_zar, total_weight_kg, created_at, updated_at`

func (s *pgStore) Insert(ctx context.Context, est Estimate) (Estimate, error) {
	if s == nil || s.pool == nil {
		return Estimate{}, ErrStoreUnavailable
	}
	input, totals, err := encodeDocs(est)
	if err != nil {
		return Estimate{}, err
	}
	row := s.pool.QueryRow(ctx, `INSERT INTO estimates (reference, supplier_id, supplier_name, input, totals, total_cost_zar, total_weight_kg)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING `+estimateColumns,
		est.Reference, est.SupplierID, est.SupplierName, input, totals,
		est.Totals.TotalInWarehouseCostZAR, est.Totals.TotalWeightKg)
	return scanEstimate(row)
}

func (s *pgStore) Update(ctx context.Context, est Estimate) (Estimate, error) {
	if s == nil || s.pool == nil {
		return Estimate{}, ErrStoreUnavailable
	}
	input, totals, err := encodeDocs(est)
	if err != nil {
		return Estimate{}, err
	}
	row := s.pool.QueryRow(ctx, `UPDATE estimates
SET reference = $2, supplier_id = $3, supplier_name = $4, input = $5, totals = $6,
    total_cost_zar = $7, total_weight_kg = $8, updated_at = now()
WHERE id = $1
RETURNING `+estimateColumns,
		est.ID, est.Reference, est.SupplierID, est.SupplierName, input, totals,
		est.Totals.TotalInWarehouseCostZAR, est.Totals.TotalWeightKg)
	updated, err := scanEstimate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Estimate{}, ErrNotFound
	}
	return updated, err
}

func (s *pgStore) GetByID(ctx context.Context, id uuid.UUID) (Estimate, error) {
	if s == nil || s.pool == nil {
		return Estimate{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `SELECT `+estimateColumns+` FROM estimates WHERE id = $1`, id)
	est, err := scanEstimate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Estimate{}, ErrNotFound
	}
	return est, err
}

func (s *pgStore) List(ctx context.Context, supplierID *uuid.UUID, limit, offset int) ([]Estimate, error) {
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
	if supplierID != nil {
		rows, err = s.pool.Query(ctx, `SELECT `+estimateColumns+` FROM estimates WHERE supplier_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, *supplierID, limit, offset)
	} else {
		rows, err = s.pool.Query(ctx, `SELECT `+estimateColumns+` FROM estimates ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	estimates := make([]Estimate, 0, limit)
	for rows.Next() {
		est, err := scanEstimate(rows)
		if err != nil {
			return nil, err
		}
		estimates = append(estimates, est)
	}
	return estimates, rows.Err()
}

func (s *pgStore) Count(ctx context.Context, supplierID *uuid.UUID) (int64, error) {
	if s == nil || s.pool == nil {
		return 0, ErrStoreUnavailable
	}
	var total int64
	if supplierID != nil {
		err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM estimates WHERE supplier_id = $1`, *supplierID).Scan(&total)
		return total, err
	}
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM estimates`).Scan(&total)
	return total, err
}

func (s *pgStore) Delete(ctx context.Context, id uuid.UUID) error {
	if s == nil || s.pool == nil {
		return ErrStoreUnavailable
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM estimates WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func encodeDocs(est Estimate) ([]byte, []byte, error) {
	input, err := json.Marshal(est.Input)
	if err != nil {
		return nil, nil, fmt.Errorf("estimate: marshal input: %w", err)
	}
	totals, err := json.Marshal(est.Totals)
	if err != nil {
		return nil, nil, fmt.Errorf("estimate: marshal totals: %w", err)
	}
	return input, totals, nil
}

func scanEstimate(row pgx.Row) (Estimate, error) {
	var (
		est         Estimate
		input       []byte
		totals      []byte
		totalCost   float64
		totalWeight float64
	)
	if err := row.Scan(&est.ID, &est.Reference, &est.SupplierID, &est.SupplierName, &input, &totals, &totalCost, &totalWeight, &est.CreatedAt, &est.UpdatedAt); err != nil {
		return Estimate{}, err
	}
	if len(input) > 0 {
		if err := json.Unmarshal(input, &est.Input); err != nil {
			return Estimate{}, fmt.Errorf("estimate: unmarshal input: %w", err)
		}
	}
	if len(totals) > 0 {
		if err := json.Unmarshal(totals, &est.Totals); err != nil {
			return Estimate{}, fmt.Errorf("estimate: unmarshal totals: %w", err)
		}
	}
	return est, nil
}
