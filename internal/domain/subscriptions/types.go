package subscriptions

import (
	"errors"
	"time"
)

var (
	ErrNoActivePlan      = errors.New("no active subscription")
	QueryTimeoutDuration = time.Second * 5
)

// Subscription tiers. Free users can submit a limited number of questions;
// paid tiers unlock coach chat and priority answers.
const (
	PlanBasic   = "basic"
	PlanPremium = "premium"
)

const (
	StatusActive  = "active"
	StatusExpired = "expired"
)

type Subscription struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Plan      string    `json:"plan"`
	Status    string    `json:"status"`
	StartsAt  time.Time `json:"starts_at"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// PlanPriceCents maps a plan to its monthly price. Kept in code, not in the
// database: prices change with a deploy, not at runtime.
func PlanPriceCents(plan string) (int64, bool) {
	switch plan {
	case PlanBasic:
		return 14900, true
	case PlanPremium:
		return 29900, true
	default:
		return 0, false
	}
}
