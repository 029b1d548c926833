package paymentsrepo

import (
	"context"
	"time"
)

type Payment struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Plan        string    `json:"plan"`
	Provider    string    `json:"provider"`     // iyzico, ...
	ProviderRef *string   `json:"provider_ref"` // checkout token etc
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"` // pending, paid, failed, refunded
	GatewayResp any       `json:"gateway_response,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Store interface {
	Create(ctx context.Context, p *Payment) (*Payment, error)
	GetByID(ctx context.Context, id int64) (*Payment, error)
	GetByProviderRef(ctx context.Context, provider, ref string) (*Payment, error)
	SetProviderRef(ctx context.Context, paymentID int64, ref string, raw any) error
	SetStatus(ctx context.Context, paymentID int64, status string) error
	MarkPaid(ctx context.Context, paymentID int64) error
}
