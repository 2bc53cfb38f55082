package queue

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrStoreUnavailable indicates the DLQ store dependency is not configured.
var ErrStoreUnavailable = errors.New("queue: store unavailable")

// DeadTask is a task that exhausted its retry budget.
type DeadTask struct {
	ID        uuid.UUID `json:"id"`
	Kind      string    `json:"kind"`
	DedupKey  string    `json:"dedup_key,omitempty"`
	Payload   []byte    `json:"payload"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists dead tasks for inspection and replay.
type Store interface {
	DeadLetterSink
	GetDead(ctx context.Context, id uuid.UUID) (DeadTask, error)
	ListDead(ctx context.Context, kind string, limit, offset int) ([]DeadTask, error)
	CountDead(ctx context.Context, kind string) (int64, error)
	DeleteDead(ctx context.Context, id uuid.UUID) error
}

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

type pgStore struct {
	pool *pgxpool.Pool
}

func (s *pgStore) SaveDead(ctx context.Context, kind, dedupKey string, payload []byte, attempts int, lastError string) error {
	if s == nil || s.pool == nil {
		return ErrStoreUnavailable
	}
	var errVal any
	if lastError != "" {
		errVal = lastError
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO queue_dead_tasks (kind, dedup_key, payload, attempts, last_error)
VALUES ($1, $2, $3, $4, $5)`, kind, dedupKey, payload, attempts, errVal)
	return err
}

func (s *pgStore) GetDead(ctx context.Context, id uuid.UUID) (DeadTask, error) {
	if s == nil || s.pool == nil {
		return DeadTask{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `SELECT id, kind, dedup_key, payload, attempts, last_error, created_at
FROM queue_dead_tasks WHERE id = $1`, id)
	var (
		task    DeadTask
		lastErr sql.NullString
	)
	if err := row.Scan(&task.ID, &task.Kind, &task.DedupKey, &task.Payload, &task.Attempts, &lastErr, &task.CreatedAt); err != nil {
		return DeadTask{}, err
	}
	if lastErr.Valid {
		task.LastError = lastErr.String
	}
	return task, nil
}

func (s *pgStore) ListDead(ctx context.Context, kind string, limit, offset int) ([]DeadTask, error) {
	if s == nil || s.pool == nil {
		return nil, ErrStoreUnavailable
	}
	if limit < 1 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT id, kind, dedup_key, payload, attempts, last_error, created_at
FROM queue_dead_tasks ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	args := []any{limit, offset}
	if kind != "" {
		query = `SELECT id, kind, dedup_key, payload, attempts, last_error, created_at
FROM queue_dead_tasks WHERE kind = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = []any{kind, limit, offset}
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]DeadTask, 0, limit)
	for rows.Next() {
		var (
			task    DeadTask
			lastErr sql.NullString
		)
		if err := rows.Scan(&task.ID, &task.Kind, &task.DedupKey, &task.Payload, &task.Attempts, &lastErr, &task.CreatedAt); err != nil {
			return nil, err
		}
		if lastErr.Valid {
			task.LastError = lastErr.String
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (s *pgStore) CountDead(ctx context.Context, kind string) (int64, error) {
	if s == nil || s.pool == nil {
		return 0, ErrStoreUnavailable
	}
	var total int64
	if kind != "" {
		err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM queue_dead_tasks WHERE kind = $1`, kind).Scan(&total)
		return total, err
	}
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM queue_dead_tasks`).Scan(&total)
	return total, err
}

func (s *pgStore) DeleteDead(ctx context.Context, id uuid.UUID) error {
	if s == nil || s.pool == nil {
		return ErrStoreUnavailable
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM queue_dead_tasks WHERE id = $1`, id)
	return err
}
