package report

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrStoreUnavailable indicates the store dependency is not configured.
var ErrStoreUnavailable = errors.New("report: store unavailable")

// SupplierSummary aggregates costing activity for one supplier.
type SupplierSummary struct {
	SupplierID    *uuid.UUID `json:"supplier_id,omitempty"`
	SupplierName  string     `json:"supplier_name"`
	EstimateCount int64      `json:"estimate_count"`
	TotalCostZAR  float64    `json:"total_cost_zar"`
	TotalWeightKg float64    `json:"total_weight_kg"`
	AvgCostPerKg  float64    `json:"avg_cost_per_kg_zar"`
}

// MonthlySummary aggregates costing activity per calendar month.
type MonthlySummary struct {
	Month         time.Time `json:"month"`
	EstimateCount int64     `json:"estimate_count"`
	TotalCostZAR  float64   `json:"total_cost_zar"`
	TotalWeightKg float64   `json:"total_weight_kg"`
}

// ShipmentStatusCount is the number of shipments currently in one status.
type ShipmentStatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// Store runs reporting aggregates against the primary database.
type Store interface {
	SupplierSummaries(ctx context.Context, from, to time.Time) ([]SupplierSummary, error)
	MonthlySummaries(ctx context.Context, from, to time.Time) ([]MonthlySummary, error)
	ShipmentStatusCounts(ctx context.Context) ([]ShipmentStatusCount, error)
}

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

type pgStore struct {
	pool *pgxpool.Pool
}

func (s *pgStore) SupplierSummaries(ctx context.Context, from, to time.Time) ([]SupplierSummary, error) {
	if s == nil || s.pool == nil {
		return nil, ErrStoreUnavailable
	}
	rows, err := s.pool.Query(ctx, `
		SELECT supplier_id,
		       COALESCE(NULLIF(supplier_name, ''), 'Unassigned') AS supplier_name,
		       COUNT(*) AS estimate_count,
		       COALESCE(SUM(total_cost_zar), 0) AS total_cost_zar,
		       COALESCE(SUM(total_weight_kg), 0) AS total_weight_kg
		FROM estimates
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY supplier_id, COALESCE(NULLIF(supplier_name, ''), 'Unassigned')
		ORDER BY total_cost_zar DESC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []SupplierSummary
	for rows.Next() {
		var sum SupplierSummary
		if err := rows.Scan(&sum.SupplierID, &sum.SupplierName, &sum.EstimateCount, &sum.TotalCostZAR, &sum.TotalWeightKg); err != nil {
			return nil, err
		}
		if sum.TotalWeightKg > 0 {
			sum.AvgCostPerKg = sum.TotalCostZAR / sum.TotalWeightKg
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

func (s *pgStore) MonthlySummaries(ctx context.Context, from, to time.Time) ([]MonthlySummary, error) {
	if s == nil || s.pool == nil {
		return nil, ErrStoreUnavailable
	}
	rows, err := s.pool.Query(ctx, `
		SELECT date_trunc('month', created_at) AS month,
		       COUNT(*) AS estimate_count,
		       COALESCE(SUM(total_cost_zar), 0) AS total_cost_zar,
		       COALESCE(SUM(total_weight_kg), 0) AS total_weight_kg
		FROM estimates
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY date_trunc('month', created_at)
		ORDER BY month
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []MonthlySummary
	for rows.Next() {
		var sum MonthlySummary
		if err := rows.Scan(&sum.Month, &sum.EstimateCount, &sum.TotalCostZAR, &sum.TotalWeightKg); err != nil {
			return nil, err
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

func (s *pgStore) ShipmentStatusCounts(ctx context.Context) ([]ShipmentStatusCount, error) {
	if s == nil || s.pool == nil {
		return nil, ErrStoreUnavailable
	}
	rows, err := s.pool.Query(ctx, `SELECT status, COUNT(*) FROM shipments GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []ShipmentStatusCount
	for rows.Next() {
		var c ShipmentStatusCount
		if err := rows.Scan(&c.Status, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
