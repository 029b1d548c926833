package main

import (
	"errors"
	"net/http"
	"strconv"

	"soruhub/internal/notifications"

	"github.com/go-chi/chi/v5"
)

type SendNotificationPayload struct {
	RecipientID int64             `json:"recipient_id" validate:"required"`
	Kind        string            `json:"kind" validate:"required,max=50"`
	Title       string            `json:"title" validate:"required,max=120"`
	Body        string            `json:"body" validate:"required,max=500"`
	Data        map[string]string `json:"data"`
}

type SendNotificationResponse struct {
	Success    bool `json:"success"`
	TokensSent int  `json:"tokens_sent"`
	Failed     int  `json:"failed"`
	Duplicate  bool `json:"duplicate"`
}

// SendNotification godoc
//
//	@Summary		Send a push notification
//	@Description	Dispatches a push to all of the recipient's devices. Identical requests inside the guard window are reported as duplicates and not re-sent.
//	@Tags			notifications
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		SendNotificationPayload	true	"Notification"
//	@Success		200		{object}	SendNotificationResponse
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/notifications/send [post]
func (app *application) sendNotificationHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	if user == nil {
		app.unauthorizedErrorResponse(w, r, errors.New("unauthorized request"))
		return
	}

	var payload SendNotificationPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	// students can only target themselves, staff can target anyone
	if user.Role == "student" && payload.RecipientID != user.ID {
		app.forbiddenResponse(w, r)
		return
	}

	res, err := app.dispatcher.Dispatch(r.Context(), notifications.DispatchRequest{
		RecipientID: payload.RecipientID,
		Kind:        payload.Kind,
		Title:       payload.Title,
		Body:        payload.Body,
		Data:        payload.Data,
	})
	if err != nil {
		switch {
		case errors.Is(err, notifications.ErrMissingRecipient), errors.Is(err, notifications.ErrMissingContent):
			app.badRequestResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	response := SendNotificationResponse{
		Success:    true,
		TokensSent: res.TokensSent,
		Failed:     res.Failed,
		Duplicate:  res.Duplicate,
	}

	if err := app.jsonResponse(w, http.StatusOK, response); err != nil {
		app.internalServerError(w, r, err)
	}
}

// ListNotifications godoc
//
//	@Summary		List my notification feed
//	@Tags			notifications
//	@Produce		json
//	@Param			limit	query		int	false	"Page size"
//	@Param			offset	query		int	false	"Offset"
//	@Success		200		{array}		notificationlog.Record
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/notifications [get]
func (app *application) listNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	if user == nil {
		app.unauthorizedErrorResponse(w, r, errors.New("unauthorized request"))
		return
	}

	limit, offset := paginationParams(r, 20)

	list, err := app.store.Notifications.ListByUser(r.Context(), user.ID, limit, offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, list); err != nil {
		app.internalServerError(w, r, err)
	}
}

// UnreadCount godoc
//
//	@Summary		Count unread notifications
//	@Tags			notifications
//	@Produce		json
//	@Success		200	{object}	map[string]int
//	@Failure		500	{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/notifications/unread-count [get]
func (app *application) unreadCountHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	if user == nil {
		app.unauthorizedErrorResponse(w, r, errors.New("unauthorized request"))
		return
	}

	count, err := app.store.Notifications.CountUnread(r.Context(), user.ID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, map[string]int{"unread": count}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// MarkNotificationRead godoc
//
//	@Summary		Mark a notification as read
//	@Tags			notifications
//	@Produce		json
//	@Param			notificationID	path	int	true	"Notification ID"
//	@Success		204
//	@Failure		400	{object}	ErrorBadRequestResponse
//	@Failure		500	{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/notifications/{notificationID}/read [patch]
func (app *application) markNotificationReadHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	if user == nil {
		app.unauthorizedErrorResponse(w, r, errors.New("unauthorized request"))
		return
	}

	notificationID, err := strconv.ParseInt(chi.URLParam(r, "notificationID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.store.Notifications.MarkRead(r.Context(), user.ID, notificationID); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
