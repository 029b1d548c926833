package storage

import (
	"context"
	"fmt"

	"soruhub/internal/domain/conversations"
	"soruhub/internal/domain/notificationlog"
	"soruhub/internal/domain/paymentsrepo"
	"soruhub/internal/domain/pushtokens"
	"soruhub/internal/domain/questions"
	"soruhub/internal/domain/subscriptions"
	"soruhub/internal/domain/users"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Container struct {
	pool          *pgxpool.Pool // IMPORTANT: set the pool so WithPaymentTx works
	Users         users.Store
	PushTokens    pushtokens.Store
	Questions     questions.Store
	Conversations conversations.Store
	Notifications notificationlog.Store
	Subscriptions subscriptions.Store
	Payments      paymentsrepo.Store
	PayLogs       *paymentsrepo.LogsRepository
}

func NewContainer(db *pgxpool.Pool) *Container {
	return &Container{
		pool:          db,
		Users:         users.NewRepository(db),
		PushTokens:    pushtokens.NewRepository(db),
		Questions:     questions.NewRepository(db),
		Conversations: conversations.NewRepository(db),
		Notifications: notificationlog.NewRepository(db),
		Subscriptions: subscriptions.NewRepository(db),
		Payments:      paymentsrepo.NewRepository(db),
		PayLogs:       paymentsrepo.NewLogsRepository(db),
	}
}

// PaymentTx is a temporary, tx-scoped set of repos for atomic units of work.
type PaymentTx struct {
	Subscriptions subscriptions.Store
	Payments      paymentsrepo.Store
	PayLogs       *paymentsrepo.LogsRepository
}

// WithPaymentTx runs a payment unit-of-work atomically: marking the payment
// paid and activating the subscription either both land or neither does.
func (c *Container) WithPaymentTx(ctx context.Context, fn func(p *PaymentTx) error) error {
	if c.pool == nil {
		return fmt.Errorf("storage container pool is nil (did you forget to set pool in NewContainer?)")
	}

	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback(ctx) // safe even if already committed
	}()

	p := &PaymentTx{
		Subscriptions: subscriptions.NewRepository(tx),
		Payments:      paymentsrepo.NewRepository(tx),
		PayLogs:       paymentsrepo.NewLogsRepository(tx),
	}

	if err := fn(p); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
