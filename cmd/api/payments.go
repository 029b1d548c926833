package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"soruhub/internal/domain/paymentsrepo"
	"soruhub/internal/domain/storage"
	"soruhub/internal/domain/subscriptions"
	"soruhub/internal/notifications"
	"soruhub/internal/payments"

	"github.com/google/uuid"
)

const subscriptionPeriod = 30 * 24 * time.Hour

type CheckoutPayload struct {
	Plan string `json:"plan" validate:"required,oneof=basic premium"`
}

type CheckoutResponse struct {
	PaymentID  int64             `json:"payment_id"`
	PaymentURL string            `json:"payment_url"`
	Data       map[string]string `json:"data"`
}

// InitiateCheckout godoc
//
//	@Summary		Start a subscription checkout
//	@Description	Creates a pending payment row and returns the iyzico checkout page url
//	@Tags			subscriptions
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CheckoutPayload	true	"Plan"
//	@Success		200		{object}	CheckoutResponse
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/subscriptions/checkout [post]
func (app *application) initiateCheckoutHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	if user == nil {
		app.unauthorizedErrorResponse(w, r, errors.New("unauthorized request"))
		return
	}

	var payload CheckoutPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	amount, ok := subscriptions.PlanPriceCents(payload.Plan)
	if !ok {
		app.badRequestResponse(w, r, errors.New("unknown plan"))
		return
	}

	ctx := r.Context()

	payment, err := app.store.Payments.Create(ctx, &paymentsrepo.Payment{
		UserID:      user.ID,
		Plan:        payload.Plan,
		Provider:    "iyzico",
		AmountCents: amount,
		Currency:    "TRY",
		Status:      "pending",
	})
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	res, err := app.payments.InitiatePayment(ctx, "iyzico", payments.PaymentRequest{
		TransactionID: uuid.New().String(),
		AmountCents:   amount,
		Currency:      "TRY",
		Plan:          payload.Plan,
		CustomerName:  user.FullName(),
		CustomerEmail: user.Email,
		CustomerPhone: user.Phone,
	})
	if err != nil {
		app.logger.Errorw("iyzico initiate failed", "payment_id", payment.ID, "error", err)
		if err := app.store.Payments.SetStatus(ctx, payment.ID, "failed"); err != nil {
			app.logger.Errorw("could not mark payment failed", "payment_id", payment.ID, "error", err)
		}
		app.internalServerError(w, r, errors.New("payment provider unavailable"))
		return
	}

	// remember the provider handle so the verify step can find this row
	if err := app.store.Payments.SetProviderRef(ctx, payment.ID, res.Data["token"], res.Data); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.store.PayLogs.InsertPaymentLog(ctx, payment.ID, "initiate", res.Data); err != nil {
		app.logger.Warnw("payment log write failed", "payment_id", payment.ID, "error", err)
	}

	response := CheckoutResponse{
		PaymentID:  payment.ID,
		PaymentURL: res.PaymentURL,
		Data:       res.Data,
	}

	if err := app.jsonResponse(w, http.StatusOK, response); err != nil {
		app.internalServerError(w, r, err)
	}
}

// settlePayment confirms the checkout with the gateway and, when the gateway
// reports success, marks the payment paid and activates the subscription in
// one transaction. A declined payment is not an error; the caller inspects
// verify.Success.
func (app *application) settlePayment(ctx context.Context, payment *paymentsrepo.Payment, token string) (*subscriptions.Subscription, payments.PaymentVerifyResponse, error) {
	verify, err := app.payments.VerifyPayment(ctx, payment.Provider, payments.PaymentVerifyRequest{
		TransactionID: strconv.FormatInt(payment.ID, 10),
		Data:          map[string]string{"token": token},
	})
	if err != nil {
		return nil, verify, err
	}

	if err := app.store.PayLogs.InsertPaymentLog(ctx, payment.ID, "verify", verify.Raw); err != nil {
		app.logger.Warnw("payment log write failed", "payment_id", payment.ID, "error", err)
	}

	if !verify.Success {
		if verify.Terminal {
			if err := app.store.Payments.SetStatus(ctx, payment.ID, "failed"); err != nil {
				app.logger.Errorw("could not mark payment failed", "payment_id", payment.ID, "error", err)
			}
		}
		return nil, verify, nil
	}

	var sub *subscriptions.Subscription
	err = app.store.WithPaymentTx(ctx, func(p *storage.PaymentTx) error {
		if err := p.Payments.MarkPaid(ctx, payment.ID); err != nil {
			return err
		}
		s, err := p.Subscriptions.Activate(ctx, payment.UserID, payment.Plan, subscriptionPeriod)
		if err != nil {
			return err
		}
		sub = s
		return nil
	})
	if err != nil {
		return nil, verify, err
	}

	app.background(func(ctx context.Context) {
		if _, err := notifications.SendPaymentReceived(ctx, app.dispatcher, payment.UserID, payment.Plan, verify.ProviderRef); err != nil {
			app.logger.Errorw("payment push failed", "payment_id", payment.ID, "error", err)
		}
	})

	return sub, verify, nil
}

type VerifyPaymentPayload struct {
	PaymentID int64  `json:"payment_id" validate:"required"`
	Token     string `json:"token" validate:"required"`
}

// VerifyPayment godoc
//
//	@Summary		Verify a checkout from the app
//	@Description	Confirms the payment with iyzico, activates the subscription atomically and pushes a confirmation notification
//	@Tags			subscriptions
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		VerifyPaymentPayload	true	"Verification data"
//	@Success		200		{object}	subscriptions.Subscription
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		402		{object}	error	"Payment not completed"
//	@Failure		404		{object}	error	"Unknown payment"
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/subscriptions/verify [post]
func (app *application) verifyPaymentHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	if user == nil {
		app.unauthorizedErrorResponse(w, r, errors.New("unauthorized request"))
		return
	}

	var payload VerifyPaymentPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx := r.Context()

	payment, err := app.store.Payments.GetByID(ctx, payload.PaymentID)
	if err != nil {
		switch err {
		case paymentsrepo.ErrNotFound:
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}
	if payment.UserID != user.ID {
		app.forbiddenResponse(w, r)
		return
	}
	if payment.Status == "paid" {
		app.badRequestResponse(w, r, errors.New("payment already processed"))
		return
	}

	sub, verify, err := app.settlePayment(ctx, payment, payload.Token)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if !verify.Success {
		writeJSONError(w, http.StatusPaymentRequired, "payment not completed: "+verify.State)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, sub); err != nil {
		app.internalServerError(w, r, err)
	}
}

// PaymentCallback godoc
//
//	@Summary		iyzico checkout callback
//	@Description	iyzico posts the checkout token here after the hosted payment page finishes. The payment row is looked up by that token and settled. Retries on a settled payment are acknowledged without touching the gateway.
//	@Tags			subscriptions
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			token	formData	string	true	"Checkout form token"
//	@Success		200		{object}	subscriptions.Subscription
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		402		{object}	error	"Payment not completed"
//	@Failure		404		{object}	error	"Unknown token"
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Router			/subscriptions/callback [post]
func (app *application) paymentCallbackHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	token := r.FormValue("token")
	if token == "" {
		app.badRequestResponse(w, r, errors.New("token is required"))
		return
	}

	ctx := r.Context()

	payment, err := app.store.Payments.GetByProviderRef(ctx, "iyzico", token)
	if err != nil {
		switch err {
		case paymentsrepo.ErrNotFound:
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	// iyzico retries the callback until it gets a 200
	if payment.Status == "paid" {
		if err := app.jsonResponse(w, http.StatusOK, map[string]string{"status": "paid"}); err != nil {
			app.internalServerError(w, r, err)
		}
		return
	}

	sub, verify, err := app.settlePayment(ctx, payment, token)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if !verify.Success {
		writeJSONError(w, http.StatusPaymentRequired, "payment not completed: "+verify.State)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, sub); err != nil {
		app.internalServerError(w, r, err)
	}
}

// MySubscription godoc
//
//	@Summary		Get my active subscription
//	@Tags			subscriptions
//	@Produce		json
//	@Success		200	{object}	subscriptions.Subscription
//	@Failure		404	{object}	error	"No active plan"
//	@Security		ApiKeyAuth
//	@Router			/subscriptions/me [get]
func (app *application) mySubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	if user == nil {
		app.unauthorizedErrorResponse(w, r, errors.New("unauthorized request"))
		return
	}

	sub, err := app.store.Subscriptions.GetActiveByUser(r.Context(), user.ID)
	if err != nil {
		switch err {
		case subscriptions.ErrNoActivePlan:
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, sub); err != nil {
		app.internalServerError(w, r, err)
	}
}
