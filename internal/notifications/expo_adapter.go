package notifications

import (
	"context"
	"strings"

	"github.com/9ssi7/exponent"
)

type ExpoAdapter struct {
	client *exponent.Client
}

func NewExpoAdapter(c *exponent.Client) *ExpoAdapter {
	return &ExpoAdapter{client: c}
}

func (a *ExpoAdapter) Publish(ctx context.Context, msgs []*exponent.Message) ([]*exponent.MessageResponse, error) {
	return a.client.Publish(ctx, msgs)
}

func (a *ExpoAdapter) PublishSingle(ctx context.Context, msg *exponent.Message) ([]*exponent.MessageResponse, error) {
	return a.client.PublishSingle(ctx, msg)
}

// ExpoProvider delivers to Expo push tokens (the mobile app) through a
// PushSender.
type ExpoProvider struct {
	push PushSender
}

var _ Provider = (*ExpoProvider)(nil)

func NewExpoProvider(push PushSender) *ExpoProvider {
	return &ExpoProvider{push: push}
}

func (p *ExpoProvider) Name() string { return "expo" }

func (p *ExpoProvider) Matches(token string) bool {
	return strings.HasPrefix(token, "ExponentPushToken[") ||
		strings.HasPrefix(token, "ExpoPushToken[")
}

func (p *ExpoProvider) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	// wrap the string token in exponent.Token to satisfy the type
	t := exponent.Token(token)
	msg := &exponent.Message{
		To:    []*exponent.Token{&t},
		Title: title,
		Body:  body,
		Data:  data,
	}
	_, err := p.push.PublishSingle(ctx, msg)
	return err
}

// Validate only checks the token format. Expo has no validate-only send, so
// dead Expo tokens are removed when the client unregisters them, not here.
func (p *ExpoProvider) Validate(ctx context.Context, token string) error {
	if !p.Matches(token) {
		return ErrTokenInvalid
	}
	return nil
}
