package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"soruhub/internal/domain/paymentsrepo"
	"soruhub/internal/domain/storage"
	"soruhub/internal/domain/users"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePaymentStore struct {
	byID  map[int64]*paymentsrepo.Payment
	byRef map[string]*paymentsrepo.Payment
}

func (f *fakePaymentStore) Create(ctx context.Context, p *paymentsrepo.Payment) (*paymentsrepo.Payment, error) {
	return p, nil
}

func (f *fakePaymentStore) GetByID(ctx context.Context, id int64) (*paymentsrepo.Payment, error) {
	if p, ok := f.byID[id]; ok {
		return p, nil
	}
	return nil, paymentsrepo.ErrNotFound
}

func (f *fakePaymentStore) GetByProviderRef(ctx context.Context, provider, ref string) (*paymentsrepo.Payment, error) {
	if p, ok := f.byRef[ref]; ok {
		return p, nil
	}
	return nil, paymentsrepo.ErrNotFound
}

func (f *fakePaymentStore) SetProviderRef(ctx context.Context, paymentID int64, ref string, raw any) error {
	return nil
}

func (f *fakePaymentStore) SetStatus(ctx context.Context, paymentID int64, status string) error {
	return nil
}

func (f *fakePaymentStore) MarkPaid(ctx context.Context, paymentID int64) error { return nil }

func newPaymentTestApp(store *fakePaymentStore) *application {
	return &application{
		logger: zap.NewNop().Sugar(),
		store:  &storage.Container{Payments: store},
	}
}

func authenticatedJSONRequest(target, body string, user *users.User) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(context.WithValue(req.Context(), userCtx, user))
}

func TestVerifyPaymentUnknownIDReturnsNotFound(t *testing.T) {
	app := newPaymentTestApp(&fakePaymentStore{})

	req := authenticatedJSONRequest("/v1/subscriptions/verify",
		`{"payment_id":999,"token":"tok"}`, &users.User{ID: 7, Role: "student"})
	rr := httptest.NewRecorder()

	require.NotPanics(t, func() { app.verifyPaymentHandler(rr, req) })
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestVerifyPaymentForeignPaymentForbidden(t *testing.T) {
	app := newPaymentTestApp(&fakePaymentStore{byID: map[int64]*paymentsrepo.Payment{
		5: {ID: 5, UserID: 99, Plan: "basic", Provider: "iyzico", Status: "pending"},
	}})

	req := authenticatedJSONRequest("/v1/subscriptions/verify",
		`{"payment_id":5,"token":"tok"}`, &users.User{ID: 7, Role: "student"})
	rr := httptest.NewRecorder()

	app.verifyPaymentHandler(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestVerifyPaymentAlreadyProcessed(t *testing.T) {
	app := newPaymentTestApp(&fakePaymentStore{byID: map[int64]*paymentsrepo.Payment{
		5: {ID: 5, UserID: 7, Plan: "basic", Provider: "iyzico", Status: "paid"},
	}})

	req := authenticatedJSONRequest("/v1/subscriptions/verify",
		`{"payment_id":5,"token":"tok"}`, &users.User{ID: 7, Role: "student"})
	rr := httptest.NewRecorder()

	app.verifyPaymentHandler(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func callbackRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/v1/subscriptions/callback", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestPaymentCallbackUnknownTokenReturnsNotFound(t *testing.T) {
	app := newPaymentTestApp(&fakePaymentStore{})

	rr := httptest.NewRecorder()
	app.paymentCallbackHandler(rr, callbackRequest("token=unknown"))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPaymentCallbackMissingToken(t *testing.T) {
	app := newPaymentTestApp(&fakePaymentStore{})

	rr := httptest.NewRecorder()
	app.paymentCallbackHandler(rr, callbackRequest(""))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPaymentCallbackSettledPaymentAcknowledged(t *testing.T) {
	app := newPaymentTestApp(&fakePaymentStore{byRef: map[string]*paymentsrepo.Payment{
		"tok123": {ID: 5, UserID: 7, Plan: "basic", Provider: "iyzico", Status: "paid"},
	}})

	rr := httptest.NewRecorder()
	app.paymentCallbackHandler(rr, callbackRequest("token=tok123"))
	assert.Equal(t, http.StatusOK, rr.Code, "retried callback must not hit the gateway again")
	assert.Contains(t, rr.Body.String(), `"paid"`)
}
