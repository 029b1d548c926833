package notifications

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// TokenSource yields a user's registered push tokens in registration order,
// most recently registered last. Satisfied by the pushtokens repository.
type TokenSource interface {
	GetTokensByUserIDs(ctx context.Context, userIDs []int64) (map[int64][]string, error)
}

// Recorder persists a per-user notification record alongside delivery.
// Satisfied by the notificationlog repository.
type Recorder interface {
	Record(ctx context.Context, userID int64, kind, title, body string, data map[string]string) error
}

// DispatchRequest is one "send a push to this user" request.
type DispatchRequest struct {
	RecipientID int64
	Kind        string
	Title       string
	Body        string
	Data        map[string]string
}

// Key derives the dedupe key for the request. The discriminator comes from
// the payload where one exists (conversation, question, payment); requests
// without one fall back to a bounded prefix of the body.
func (r DispatchRequest) Key() string {
	disc := r.Data["conversation_id"]
	if disc == "" {
		disc = r.Data["question_id"]
	}
	if disc == "" {
		disc = r.Data["payment_id"]
	}
	if disc == "" {
		disc = truncate(r.Body, maxKeyTextLen)
	}
	return DedupeKey(r.RecipientID, r.Kind, disc)
}

// DispatchResult reports what a dispatch actually did.
type DispatchResult struct {
	TokensSent int
	Failed     int
	Duplicate  bool
}

var (
	ErrMissingRecipient = errors.New("recipient id is required")
	ErrMissingContent   = errors.New("title and body are required")
)

// Dispatcher runs the full send pipeline: dedup gate, token load,
// consolidation, provider routing, record write. Delivery is best-effort by
// contract: the business write that triggered a notification must never
// fail or roll back because dispatch did.
type Dispatcher struct {
	dedupe    *Deduplicator
	providers []Provider
	tokens    TokenSource
	recorder  Recorder
	logger    *zap.SugaredLogger
}

func NewDispatcher(dedupe *Deduplicator, providers []Provider, tokens TokenSource, recorder Recorder, logger *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{
		dedupe:    dedupe,
		providers: providers,
		tokens:    tokens,
		recorder:  recorder,
		logger:    logger,
	}
}

// Dispatch sends req to the recipient's consolidated device set.
//
// A duplicate-suppressed request is not an error: it returns
// {Duplicate: true, TokensSent: 0} without touching the network. A token
// store failure is an error since deliverability cannot be determined.
// Per-token provider failures are logged and aggregated, never fatal.
func (d *Dispatcher) Dispatch(ctx context.Context, req DispatchRequest) (DispatchResult, error) {
	var res DispatchResult

	if req.RecipientID == 0 {
		return res, ErrMissingRecipient
	}
	if req.Title == "" || req.Body == "" {
		return res, ErrMissingContent
	}

	key := req.Key()
	if !d.dedupe.Accept(key) {
		d.logger.Debugw("duplicate notification suppressed", "key", key)
		res.Duplicate = true
		return res, nil
	}

	tokensMap, err := d.tokens.GetTokensByUserIDs(ctx, []int64{req.RecipientID})
	if err != nil {
		return res, fmt.Errorf("load push tokens: %w", err)
	}

	tokens := Consolidate(tokensMap[req.RecipientID])
	if len(tokens) == 0 {
		// no deliverable device; still log the notification for in-app display
		d.record(ctx, req)
		return res, nil
	}

	for _, token := range tokens {
		p := providerFor(d.providers, token)
		if p == nil {
			d.logger.Warnw("push token undeliverable", "recipient_id", req.RecipientID, "error", ErrNoProvider)
			res.Failed++
			continue
		}
		if err := p.Send(ctx, token, req.Title, req.Body, req.Data); err != nil {
			res.Failed++
			d.logger.Errorw("push send failed",
				"provider", p.Name(),
				"recipient_id", req.RecipientID,
				"kind", req.Kind,
				"error", err,
			)
			continue
		}
		res.TokensSent++
	}

	d.record(ctx, req)

	d.logger.Infow("notification dispatched",
		"recipient_id", req.RecipientID,
		"kind", req.Kind,
		"sent", res.TokensSent,
		"failed", res.Failed,
	)

	return res, nil
}

// record writes the per-user notification row. Failure here is logged only;
// the push may already be out and the caller's business write must stand.
func (d *Dispatcher) record(ctx context.Context, req DispatchRequest) {
	if d.recorder == nil {
		return
	}
	if err := d.recorder.Record(ctx, req.RecipientID, req.Kind, req.Title, req.Body, req.Data); err != nil {
		d.logger.Errorw("notification record write failed", "recipient_id", req.RecipientID, "error", err)
	}
}
