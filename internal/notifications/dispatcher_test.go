package notifications

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTokenStore struct {
	mu      sync.Mutex
	tokens  map[int64][]string
	err     error
	removed []string
}

func (f *fakeTokenStore) GetTokensByUserIDs(ctx context.Context, userIDs []int64) (map[int64][]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[int64][]string)
	for _, id := range userIDs {
		if ts, ok := f.tokens[id]; ok {
			out[id] = ts
		}
	}
	return out, nil
}

func (f *fakeTokenStore) ListUserIDsWithTokens(ctx context.Context) ([]int64, error) {
	ids := make([]int64, 0, len(f.tokens))
	for id := range f.tokens {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeTokenStore) RemoveTokensByTokenList(ctx context.Context, tokens []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, tokens...)
	for id, ts := range f.tokens {
		kept := ts[:0]
		for _, t := range ts {
			drop := false
			for _, rm := range tokens {
				if t == rm {
					drop = true
					break
				}
			}
			if !drop {
				kept = append(kept, t)
			}
		}
		f.tokens[id] = kept
	}
	return nil
}

type fakeProvider struct {
	mu      sync.Mutex
	name    string
	sendErr error
	invalid map[string]bool
	sent    []string
	match   func(token string) bool
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Matches(token string) bool {
	if f.match != nil {
		return f.match(token)
	}
	return token != ""
}

func (f *fakeProvider) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, token)
	return nil
}

func (f *fakeProvider) Validate(ctx context.Context, token string) error {
	if f.invalid[token] {
		return ErrTokenInvalid
	}
	return nil
}

func (f *fakeProvider) sentTokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type fakeRecorder struct {
	mu      sync.Mutex
	err     error
	records []DispatchRequest
}

func (f *fakeRecorder) Record(ctx context.Context, userID int64, kind, title, body string, data map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, DispatchRequest{RecipientID: userID, Kind: kind, Title: title, Body: body, Data: data})
	return nil
}

func newTestDispatcher(window time.Duration, provider Provider, tokens TokenSource, rec Recorder) *Dispatcher {
	return NewDispatcher(NewDeduplicator(window), []Provider{provider}, tokens, rec, zap.NewNop().Sugar())
}

func TestDispatchSuppressesDuplicateWithinWindow(t *testing.T) {
	provider := &fakeProvider{name: "expo"}
	store := &fakeTokenStore{tokens: map[int64][]string{1: {"tok1"}}}
	rec := &fakeRecorder{}
	d := newTestDispatcher(5*time.Second, provider, store, rec)

	req := DispatchRequest{
		RecipientID: 1,
		Kind:        "chat_message",
		Title:       "Yeni mesaj",
		Body:        "Merhaba",
		Data:        map[string]string{"conversation_id": "c42"},
	}

	first, err := d.Dispatch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, first.TokensSent)
	assert.False(t, first.Duplicate)

	// 500ms later, same logical event
	second, err := d.Dispatch(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Zero(t, second.TokensSent)

	assert.Len(t, provider.sentTokens(), 1, "delivery service must be called exactly once")
	assert.Len(t, rec.records, 1, "suppressed request must not write a record")
}

func TestDispatchAcceptsAfterWindowExpiry(t *testing.T) {
	provider := &fakeProvider{name: "expo"}
	store := &fakeTokenStore{tokens: map[int64][]string{1: {"tok1"}}}
	d := newTestDispatcher(40*time.Millisecond, provider, store, &fakeRecorder{})

	req := DispatchRequest{RecipientID: 1, Kind: "chat_message", Title: "Yeni mesaj", Body: "Merhaba",
		Data: map[string]string{"conversation_id": "c42"}}

	first, err := d.Dispatch(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 1, first.TokensSent)

	time.Sleep(80 * time.Millisecond)

	second, err := d.Dispatch(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, second.Duplicate)
	assert.Equal(t, 1, second.TokensSent)
}

func TestDispatchConsolidatesTokens(t *testing.T) {
	provider := &fakeProvider{name: "expo"}
	store := &fakeTokenStore{tokens: map[int64][]string{1: {"tokA", "tokB", "tokA", "tokC"}}}
	d := newTestDispatcher(time.Second, provider, store, &fakeRecorder{})

	res, err := d.Dispatch(context.Background(), DispatchRequest{
		RecipientID: 1, Kind: "chat_message", Title: "Yeni mesaj", Body: "Merhaba",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.TokensSent)
	assert.Equal(t, []string{"tokC"}, provider.sentTokens(), "only the most recent registration receives the push")
}

func TestDispatchNoDeliverableDevice(t *testing.T) {
	provider := &fakeProvider{name: "expo"}
	store := &fakeTokenStore{tokens: map[int64][]string{}}
	rec := &fakeRecorder{}
	d := newTestDispatcher(time.Second, provider, store, rec)

	res, err := d.Dispatch(context.Background(), DispatchRequest{
		RecipientID: 9, Kind: "chat_message", Title: "Yeni mesaj", Body: "Merhaba",
	})
	require.NoError(t, err, "zero tokens is not an error")
	assert.Zero(t, res.TokensSent)
	assert.Len(t, rec.records, 1, "record still written for in-app display")
}

func TestDispatchUnmatchedTokenCountsAsFailure(t *testing.T) {
	provider := &fakeProvider{name: "expo", match: func(token string) bool {
		return strings.HasPrefix(token, "ExponentPushToken[")
	}}
	store := &fakeTokenStore{tokens: map[int64][]string{1: {"web-token-123"}}}
	rec := &fakeRecorder{}
	d := newTestDispatcher(time.Second, provider, store, rec)

	res, err := d.Dispatch(context.Background(), DispatchRequest{
		RecipientID: 1, Kind: "chat_message", Title: "Yeni mesaj", Body: "Merhaba",
	})
	require.NoError(t, err, "an undeliverable token is not a request failure")
	assert.Equal(t, 1, res.Failed)
	assert.Zero(t, res.TokensSent)
	assert.Empty(t, provider.sentTokens())
	assert.Len(t, rec.records, 1, "record still written for in-app display")
}

func TestDispatchValidation(t *testing.T) {
	d := newTestDispatcher(time.Second, &fakeProvider{name: "expo"},
		&fakeTokenStore{tokens: map[int64][]string{}}, &fakeRecorder{})

	_, err := d.Dispatch(context.Background(), DispatchRequest{Kind: "x", Title: "t", Body: "b"})
	assert.ErrorIs(t, err, ErrMissingRecipient)

	_, err = d.Dispatch(context.Background(), DispatchRequest{RecipientID: 1, Kind: "x", Title: "t"})
	assert.ErrorIs(t, err, ErrMissingContent)
}

func TestDispatchStoreFailureIsRequestFailure(t *testing.T) {
	d := newTestDispatcher(time.Second, &fakeProvider{name: "expo"},
		&fakeTokenStore{err: errors.New("connection refused")}, &fakeRecorder{})

	_, err := d.Dispatch(context.Background(), DispatchRequest{
		RecipientID: 1, Kind: "chat_message", Title: "Yeni mesaj", Body: "Merhaba",
	})
	assert.Error(t, err, "token store failure must surface to the caller")
}

func TestDispatchFailedSendStillCountsForDedup(t *testing.T) {
	provider := &fakeProvider{name: "expo", sendErr: errors.New("upstream down")}
	store := &fakeTokenStore{tokens: map[int64][]string{1: {"tok1"}}}
	d := newTestDispatcher(time.Second, provider, store, &fakeRecorder{})

	req := DispatchRequest{RecipientID: 1, Kind: "chat_message", Title: "Yeni mesaj", Body: "Merhaba",
		Data: map[string]string{"conversation_id": "c42"}}

	first, err := d.Dispatch(context.Background(), req)
	require.NoError(t, err, "delivery failure is not a request failure")
	assert.Equal(t, 1, first.Failed)
	assert.Zero(t, first.TokensSent)

	second, err := d.Dispatch(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Duplicate, "a failed send still claims the dedup window")
}

func TestTokenValidatorPrunesInvalid(t *testing.T) {
	provider := &fakeProvider{name: "expo", invalid: map[string]bool{"dead1": true, "dead2": true}}
	store := &fakeTokenStore{tokens: map[int64][]string{1: {"dead1", "alive", "dead2"}}}
	v := NewTokenValidator([]Provider{provider}, store, zap.NewNop().Sugar())

	removed, err := v.ValidateUser(context.Background(), 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"dead1", "dead2"}, removed)
	assert.Equal(t, []string{"alive"}, store.tokens[1])
}

func TestTokenValidatorNoInvalidTokens(t *testing.T) {
	provider := &fakeProvider{name: "expo"}
	store := &fakeTokenStore{tokens: map[int64][]string{1: {"alive"}}}
	v := NewTokenValidator([]Provider{provider}, store, zap.NewNop().Sugar())

	removed, err := v.ValidateUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, removed)
	assert.Empty(t, store.removed)
}
