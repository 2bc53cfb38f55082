package supplier

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the supplier does not exist.
var ErrNotFound = errors.New("supplier: not found")

// ErrDuplicateName indicates another supplier already uses the name.
var ErrDuplicateName = errors.New("supplier: name already exists")

// ErrStoreUnavailable indicates the store dependency is not configured.
var ErrStoreUnavailable = errors.New("supplier: store unavailable")

// Supplier is a trading partner goods are imported from.
type Supplier struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Country      string    `json:"country,omitempty"`
	Currency     string    `json:"currency,omitempty"`
	ContactEmail string    `json:"contact_email,omitempty"`
	PaymentTerms string    `json:"payment_terms,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store provides database accessors for suppliers.
type Store interface {
	Insert(ctx context.Context, sup Supplier) (Supplier, error)
	Update(ctx context.Context, sup Supplier) (Supplier, error)
	GetByID(ctx context.Context, id uuid.UUID) (Supplier, error)
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]Supplier, error)
	Count(ctx context.Context, activeOnly bool) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

type pgStore struct {
	pool *pgxpool.Pool
}

const supplierColumns = `id, name, country, currency, contact_email, payment_terms, notes, active, created_at, updated_at`

func (s *pgStore) Insert(ctx context.Context, sup Supplier) (Supplier, error) {
	if s == nil || s.pool == nil {
		return Supplier{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `INSERT INTO suppliers (name, country, currency, contact_email, payment_terms, notes, active)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING `+supplierColumns,
		sup.Name, sup.Country, sup.Currency, sup.ContactEmail, sup.PaymentTerms, sup.Notes, sup.Active)
	inserted, err := scanSupplier(row)
	if err != nil {
		return Supplier{}, translateUnique(err)
	}
	return inserted, nil
}

func (s *pgStore) Update(ctx context.Context, sup Supplier) (Supplier, error) {
	if s == nil || s.pool == nil {
		return Supplier{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `UPDATE suppliers
SET name = $2, country = $3, currency = $4, contact_email = $5, payment_terms = $6, notes = $7, active = $8, updated_at = now()
WHERE id = $1
RETURNING `+supplierColumns,
		sup.ID, sup.Name, sup.Country, sup.Currency, sup.ContactEmail, sup.PaymentTerms, sup.Notes, sup.Active)
	updated, err := scanSupplier(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, ErrNotFound
	}
	if err != nil {
		return Supplier{}, translateUnique(err)
	}
	return updated, nil
}

func (s *pgStore) GetByID(ctx context.Context, id uuid.UUID) (Supplier, error) {
	if s == nil || s.pool == nil {
		return Supplier{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE id = $1`, id)
	sup, err := scanSupplier(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, ErrNotFound
	}
	return sup, err
}

func (s *pgStore) List(ctx context.Context, activeOnly bool, limit, offset int) ([]Supplier, error) {
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
	if activeOnly {
		rows, err = s.pool.Query(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE active ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	} else {
		rows, err = s.pool.Query(ctx, `SELECT `+supplierColumns+` FROM suppliers ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	suppliers := make([]Supplier, 0, limit)
	for rows.Next() {
		sup, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		suppliers = append(suppliers, sup)
	}
	return suppliers, rows.Err()
}

func (s *pgStore) Count(ctx context.Context, activeOnly bool) (int64, error) {
	if s == nil || s.pool == nil {
		return 0, ErrStoreUnavailable
	}
	var total int64
	if activeOnly {
		err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM suppliers WHERE active`).Scan(&total)
		return total, err
	}
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM suppliers`).Scan(&total)
	return total, err
}

func (s *pgStore) Delete(ctx context.Context, id uuid.UUID) error {
	if s == nil || s.pool == nil {
		return ErrStoreUnavailable
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSupplier(row pgx.Row) (Supplier, error) {
	var sup Supplier
	err := row.Scan(&sup.ID, &sup.Name, &sup.Country, &sup.Currency, &sup.ContactEmail, &sup.PaymentTerms, &sup.Notes, &sup.Active, &sup.CreatedAt, &sup.UpdatedAt)
	return sup, err
}

func translateUnique(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateName
	}
	return err
}
