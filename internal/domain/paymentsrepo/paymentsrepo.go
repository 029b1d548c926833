package paymentsrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"soruhub/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

var ErrNotFound = errors.New("payment not found")

type Repository struct{ q dbx.Querier }

func NewRepository(q dbx.Querier) *Repository { return &Repository{q: q} }

func (r *Repository) Create(ctx context.Context, p *Payment) (*Payment, error) {
	if err := r.q.QueryRow(ctx, `
		INSERT INTO payments (user_id, plan, provider, amount_cents, currency, status)
		VALUES (
			$1,
			$2,
			$3,
			$4,
			COALESCE($5,'TRY'),
			COALESCE($6,'pending')::payment_status
		)
		RETURNING id, created_at, updated_at
	`, p.UserID, p.Plan, p.Provider, p.AmountCents, p.Currency, p.Status).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	return p, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*Payment, error) {
	var p Payment
	var raw []byte
	err := r.q.QueryRow(ctx, `
		SELECT id, user_id, plan, provider, provider_ref, amount_cents, currency, status,
		       gateway_response, created_at, updated_at
		FROM payments WHERE id=$1
	`, id).Scan(
		&p.ID, &p.UserID, &p.Plan, &p.Provider, &p.ProviderRef, &p.AmountCents, &p.Currency, &p.Status,
		&raw, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &p.GatewayResp)
	}
	return &p, nil
}

func (r *Repository) GetByProviderRef(ctx context.Context, provider, ref string) (*Payment, error) {
	var p Payment
	err := r.q.QueryRow(ctx, `
		SELECT id, user_id, plan, provider, provider_ref, amount_cents, currency, status,
		       created_at, updated_at
		FROM payments WHERE provider=$1 AND provider_ref=$2
	`, provider, ref).Scan(
		&p.ID, &p.UserID, &p.Plan, &p.Provider, &p.ProviderRef, &p.AmountCents, &p.Currency, &p.Status,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get payment by provider ref: %w", err)
	}
	return &p, nil
}

func (r *Repository) SetProviderRef(ctx context.Context, paymentID int64, ref string, raw any) error {
	var jb []byte
	if raw != nil {
		if b, err := json.Marshal(raw); err == nil {
			jb = b
		}
	}
	_, err := r.q.Exec(ctx, `
		UPDATE payments SET provider_ref=$1, gateway_response=$2, updated_at=NOW() WHERE id=$3
	`, ref, jb, paymentID)
	if err != nil {
		return fmt.Errorf("set provider ref: %w", err)
	}
	return nil
}

func (r *Repository) SetStatus(ctx context.Context, paymentID int64, status string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE payments SET status=$1::payment_status, updated_at=NOW() WHERE id=$2
	`, status, paymentID)
	if err != nil {
		return fmt.Errorf("set payment status: %w", err)
	}
	return nil
}

func (r *Repository) MarkPaid(ctx context.Context, paymentID int64) error {
	return r.SetStatus(ctx, paymentID, "paid")
}
