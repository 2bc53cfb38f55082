package notify

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Notification delivery states.
const (
	StatusPending = "PENDING"
	StatusSent    = "SENT"
	StatusFailed  = "FAILED"
)

// ErrNotFound indicates the notification does not exist.
var ErrNotFound = errors.New("notify: not found")

// ErrStoreUnavailable indicates the store dependency is not configured.
var ErrStoreUnavailable = errors.New("notify: store unavailable")

// Notification is one queued or delivered message.
type Notification struct {
	ID        uuid.UUID  `json:"id"`
	EventID   uuid.UUID  `json:"event_id"`
	Topic     string     `json:"topic"`
	Recipient string     `json:"recipient"`
	Subject   string     `json:"subject"`
	Body      string     `json:"body"`
	Status    string     `json:"status"`
	Attempts  int        `json:"attempts"`
	LastError string     `json:"last_error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
}

// Store provides database accessors for notification history.
type Store interface {
	Insert(ctx context.Context, n Notification) (Notification, error)
	GetByID(ctx context.Context, id uuid.UUID) (Notification, error)
	List(ctx context.Context, status string, limit, offset int) ([]Notification, error)
	Count(ctx context.Context, status string) (int64, error)
	MarkSent(ctx context.Context, id uuid.UUID, attempts int) error
	MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastError string) error
}

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

type pgStore struct {
	pool *pgxpool.Pool
}

const notificationColumns = `id, event_id, topic, recipient, subject, body, status, attempts, last_error, created_at, sent_at`

func (s *pgStore) Insert(ctx context.Context, n Notification) (Notification, error) {
	if s == nil || s.pool == nil {
		return Notification{}, ErrStoreUnavailable
	}
	status := n.Status
	if status == "" {
		status = StatusPending
	}
	row := s.pool.QueryRow(ctx, `INSERT INTO notifications (event_id, topic, recipient, subject, body, status)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+notificationColumns,
		n.EventID, n.Topic, n.Recipient, n.Subject, n.Body, status)
	return scanNotification(row)
}

func (s *pgStore) GetByID(ctx context.Context, id uuid.UUID) (Notification, error) {
	if s == nil || s.pool == nil {
		return Notification{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	n, err := scanNotification(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Notification{}, ErrNotFound
	}
	return n, err
}

func (s *pgStore) List(ctx context.Context, status string, limit, offset int) ([]Notification, error) {
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
		rows, err = s.pool.Query(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, status, limit, offset)
	} else {
		rows, err = s.pool.Query(ctx, `SELECT `+notificationColumns+` FROM notifications ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]Notification, 0, limit)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (s *pgStore) Count(ctx context.Context, status string) (int64, error) {
	if s == nil || s.pool == nil {
		return 0, ErrStoreUnavailable
	}
	var total int64
	if status != "" {
		err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE status = $1`, status).Scan(&total)
		return total, err
	}
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications`).Scan(&total)
	return total, err
}

func (s *pgStore) MarkSent(ctx context.Context, id uuid.UUID, attempts int) error {
	if s == nil || s.pool == nil {
		return ErrStoreUnavailable
	}
	tag, err := s.pool.Exec(ctx, `UPDATE notifications SET status = $2, attempts = $3, sent_at = now() WHERE id = $1`,
		id, StatusSent, attempts)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgStore) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastError string) error {
	if s == nil || s.pool == nil {
		return ErrStoreUnavailable
	}
	tag, err := s.pool.Exec(ctx, `UPDATE notifications SET status = $2, attempts = $3, last_error = $4 WHERE id = $1`,
		id, StatusFailed, attempts, lastError)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanNotification(row pgx.Row) (Notification, error) {
	var (
		n       Notification
		lastErr sql.NullString
		sentAt  sql.NullTime
	)
	err := row.Scan(&n.ID, &n.EventID, &n.Topic, &n.Recipient, &n.Subject, &n.Body, &n.Status, &n.Attempts, &lastErr, &n.CreatedAt, &sentAt)
	if err != nil {
		return Notification{}, err
	}
	if lastErr.Valid {
		n.LastError = lastErr.String
	}
	if sentAt.Valid {
		t := sentAt.Time
		n.SentAt = &t
	}
	return n, nil
}
