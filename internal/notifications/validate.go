package notifications

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// TokenPruner extends TokenSource with the write side the maintenance pass
// needs. Satisfied by the pushtokens repository.
type TokenPruner interface {
	TokenSource
	ListUserIDsWithTokens(ctx context.Context) ([]int64, error)
	RemoveTokensByTokenList(ctx context.Context, tokens []string) error
}

// TokenValidator walks users' full historical token sets off the hot send
// path, checks each token against its provider (dry-run where supported)
// and permanently drops the ones the service reports dead.
type TokenValidator struct {
	providers []Provider
	tokens    TokenPruner
	logger    *zap.SugaredLogger
}

func NewTokenValidator(providers []Provider, tokens TokenPruner, logger *zap.SugaredLogger) *TokenValidator {
	return &TokenValidator{providers: providers, tokens: tokens, logger: logger}
}

// ValidateUser checks every token registered for userID and removes the
// invalid ones. Returns the removed tokens.
func (v *TokenValidator) ValidateUser(ctx context.Context, userID int64) ([]string, error) {
	tokensMap, err := v.tokens.GetTokensByUserIDs(ctx, []int64{userID})
	if err != nil {
		return nil, err
	}

	var invalid []string
	for _, token := range tokensMap[userID] {
		p := providerFor(v.providers, token)
		if p == nil {
			invalid = append(invalid, token)
			continue
		}
		err := p.Validate(ctx, token)
		switch {
		case err == nil:
		case errors.Is(err, ErrTokenInvalid):
			invalid = append(invalid, token)
		default:
			// transient provider trouble; keep the token, try next sweep
			v.logger.Warnw("token validation inconclusive", "provider", p.Name(), "user_id", userID, "error", err)
		}
	}

	if len(invalid) == 0 {
		return nil, nil
	}
	if err := v.tokens.RemoveTokensByTokenList(ctx, invalid); err != nil {
		return nil, err
	}
	v.logger.Infow("pruned invalid push tokens", "user_id", userID, "count", len(invalid))
	return invalid, nil
}

// ValidateAll sweeps every user that has at least one registered token.
// Per-user failures are logged and do not stop the sweep.
func (v *TokenValidator) ValidateAll(ctx context.Context) (int, error) {
	userIDs, err := v.tokens.ListUserIDsWithTokens(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, id := range userIDs {
		tokens, err := v.ValidateUser(ctx, id)
		if err != nil {
			v.logger.Errorw("token validation failed", "user_id", id, "error", err)
			continue
		}
		removed += len(tokens)
	}
	return removed, nil
}
