package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"soruhub/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

type Store interface {
	Activate(ctx context.Context, userID int64, plan string, duration time.Duration) (*Subscription, error)
	GetActiveByUser(ctx context.Context, userID int64) (*Subscription, error)
	ExpireLapsed(ctx context.Context) (int64, error)
}

type Repository struct{ q dbx.Querier }

func NewRepository(q dbx.Querier) *Repository { return &Repository{q: q} }

// Activate starts (or extends) the user's subscription. An existing active
// row for the same user is superseded, not stacked.
func (r *Repository) Activate(ctx context.Context, userID int64, plan string, duration time.Duration) (*Subscription, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	if _, err := r.q.Exec(ctx, `
		UPDATE subscriptions SET status='expired' WHERE user_id=$1 AND status='active'
	`, userID); err != nil {
		return nil, err
	}

	var s Subscription
	err := r.q.QueryRow(ctx, `
		INSERT INTO subscriptions (user_id, plan, status, starts_at, expires_at)
		VALUES ($1, $2, 'active', NOW(), NOW() + $3::interval)
		RETURNING id, user_id, plan, status, starts_at, expires_at, created_at
	`, userID, plan, fmt.Sprintf("%d seconds", int64(duration.Seconds()))).
		Scan(&s.ID, &s.UserID, &s.Plan, &s.Status, &s.StartsAt, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) GetActiveByUser(ctx context.Context, userID int64) (*Subscription, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var s Subscription
	err := r.q.QueryRow(ctx, `
		SELECT id, user_id, plan, status, starts_at, expires_at, created_at
		FROM subscriptions
		WHERE user_id=$1 AND status='active' AND expires_at > NOW()
		ORDER BY expires_at DESC
		LIMIT 1
	`, userID).
		Scan(&s.ID, &s.UserID, &s.Plan, &s.Status, &s.StartsAt, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActivePlan
		}
		return nil, err
	}
	return &s, nil
}

// ExpireLapsed flips active rows whose expiry has passed. Run by the
// background sweep.
func (r *Repository) ExpireLapsed(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.q.Exec(ctx, `
		UPDATE subscriptions SET status='expired' WHERE status='active' AND expires_at <= NOW()
	`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
