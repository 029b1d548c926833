// Package notificationlog persists the per-user notification feed the
// dispatcher writes alongside push delivery.
package notificationlog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var QueryTimeoutDuration = time.Second * 5

type Record struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Kind      string          `json:"kind"`
	Title     string          `json:"title"`
	Body      string          `json:"body"`
	Data      json.RawMessage `json:"data"`
	ReadAt    *time.Time      `json:"read_at"`
	CreatedAt time.Time       `json:"created_at"`
}

type Store interface {
	Record(ctx context.Context, userID int64, kind, title, body string, data map[string]string) error
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]Record, error)
	MarkRead(ctx context.Context, userID, recordID int64) error
	CountUnread(ctx context.Context, userID int64) (int, error)
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Store {
	return &Repository{db: db}
}

// Record appends one row to the user's notification feed. The data map is
// stored as jsonb so the client can deep-link the same way it does from a
// push payload.
func (r *Repository) Record(ctx context.Context, userID int64, kind, title, body string, data map[string]string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}

	query := `INSERT INTO notifications (user_id, kind, title, body, data) VALUES ($1, $2, $3, $4, $5)`
	_, err = r.db.Exec(ctx, query, userID, kind, title, body, raw)
	return err
}

func (r *Repository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
	SELECT id, user_id, kind, title, body, data, read_at, created_at
	FROM notifications
	WHERE user_id = $1
	ORDER BY created_at DESC
	LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Kind, &rec.Title, &rec.Body, &rec.Data, &rec.ReadAt, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *Repository) MarkRead(ctx context.Context, userID, recordID int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	_, err := r.db.Exec(ctx,
		`UPDATE notifications SET read_at = NOW() WHERE id = $1 AND user_id = $2 AND read_at IS NULL`,
		recordID, userID)
	return err
}

func (r *Repository) CountUnread(ctx context.Context, userID int64) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL`, userID).Scan(&n)
	return n, err
}
