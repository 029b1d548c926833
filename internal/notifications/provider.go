package notifications

import (
	"context"
	"errors"
)

// ErrTokenInvalid marks a token the delivery service reports as dead
// (unregistered, malformed). Maintenance pruning keys off this error.
var ErrTokenInvalid = errors.New("push token invalid")

// ErrNoProvider is returned when no registered provider recognizes a token.
var ErrNoProvider = errors.New("no provider matches token")

// Provider is a downstream push delivery backend (Expo for mobile tokens,
// FCM for web tokens). Implementations must be safe for concurrent use.
type Provider interface {
	Name() string
	// Matches reports whether this provider handles the token's format.
	Matches(token string) bool
	Send(ctx context.Context, token, title, body string, data map[string]string) error
	// Validate checks a token without delivering a visible notification
	// (dry-run where the backend supports it). Dead tokens surface as
	// ErrTokenInvalid.
	Validate(ctx context.Context, token string) error
}

// providerFor picks the first provider whose token format matches.
func providerFor(providers []Provider, token string) Provider {
	for _, p := range providers {
		if p.Matches(token) {
			return p
		}
	}
	return nil
}
