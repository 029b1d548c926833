package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"soruhub/internal/domain/conversations"
	"soruhub/internal/notifications"

	"github.com/go-chi/chi/v5"
)

type OpenConversationPayload struct {
	CoachID   int64 `json:"coach_id" validate:"required_without=StudentID"`
	StudentID int64 `json:"student_id" validate:"required_without=CoachID"`
}

// OpenConversation godoc
//
//	@Summary		Open (or fetch) a conversation
//	@Description	Returns the student-coach channel, creating it on first contact. Students pass coach_id, coaches pass student_id.
//	@Tags			conversations
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		OpenConversationPayload	true	"Counterpart"
//	@Success		200		{object}	conversations.Conversation
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/conversations [post]
func (app *application) openConversationHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	if user == nil {
		app.unauthorizedErrorResponse(w, r, errors.New("unauthorized request"))
		return
	}

	var payload OpenConversationPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var studentID, coachID int64
	switch user.Role {
	case "coach":
		studentID, coachID = payload.StudentID, user.ID
	default:
		studentID, coachID = user.ID, payload.CoachID
	}

	if studentID == 0 || coachID == 0 {
		app.badRequestResponse(w, r, errors.New("counterpart id is required"))
		return
	}

	conv, err := app.store.Conversations.GetOrCreate(r.Context(), studentID, coachID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, conv); err != nil {
		app.internalServerError(w, r, err)
	}
}

// ListMessages godoc
//
//	@Summary		List messages in a conversation
//	@Tags			conversations
//	@Produce		json
//	@Param			conversationID	path		int	true	"Conversation ID"
//	@Param			limit			query		int	false	"Page size"
//	@Param			offset			query		int	false	"Offset"
//	@Success		200				{array}		conversations.Message
//	@Failure		404				{object}	error
//	@Security		ApiKeyAuth
//	@Router			/conversations/{conversationID}/messages [get]
func (app *application) listMessagesHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	conv, err := app.conversationFromURL(w, r)
	if conv == nil {
		return
	}

	if user.ID != conv.StudentID && user.ID != conv.CoachID && user.Role != "admin" {
		app.forbiddenResponse(w, r)
		return
	}

	limit, offset := paginationParams(r, 50)

	msgs, err := app.store.Conversations.ListMessages(r.Context(), conv.ID, limit, offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, msgs); err != nil {
		app.internalServerError(w, r, err)
	}
}

type SendMessagePayload struct {
	Text string `json:"text" validate:"required,max=2000"`
}

// SendMessage godoc
//
//	@Summary		Send a chat message
//	@Description	Appends the message and pushes a "Yeni mesaj" notification to the counterpart. Push delivery is best-effort and never fails the request.
//	@Tags			conversations
//	@Accept			json
//	@Produce		json
//	@Param			conversationID	path		int					true	"Conversation ID"
//	@Param			payload			body		SendMessagePayload	true	"Message"
//	@Success		201				{object}	conversations.Message
//	@Failure		400				{object}	ErrorBadRequestResponse
//	@Failure		404				{object}	error
//	@Security		ApiKeyAuth
//	@Router			/conversations/{conversationID}/messages [post]
func (app *application) sendMessageHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	conv, err := app.conversationFromURL(w, r)
	if conv == nil {
		return
	}

	if user.ID != conv.StudentID && user.ID != conv.CoachID {
		app.forbiddenResponse(w, r)
		return
	}

	var payload SendMessagePayload
	if err = readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	msg := &conversations.Message{
		ConversationID: conv.ID,
		SenderID:       user.ID,
		Body:           payload.Text,
	}

	if err := app.store.Conversations.AddMessage(r.Context(), msg); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	recipientID := conv.StudentID
	if user.ID == conv.StudentID {
		recipientID = conv.CoachID
	}

	conversationID := conv.ID
	senderName := user.FullName()
	preview := payload.Text

	// another session of this app instance may already have claimed the
	// push for this message
	if app.coordinator.CanSend(strconv.FormatInt(conversationID, 10), preview) {
		app.background(func(ctx context.Context) {
			if _, err := notifications.SendNewMessage(ctx, app.dispatcher, recipientID, conversationID, senderName, preview); err != nil {
				app.logger.Errorw("chat push failed", "conversation_id", conversationID, "error", err)
			}
		})
	}

	if err := app.jsonResponse(w, http.StatusCreated, msg); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) conversationFromURL(w http.ResponseWriter, r *http.Request) (*conversations.Conversation, error) {
	conversationID, err := strconv.ParseInt(chi.URLParam(r, "conversationID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return nil, err
	}

	conv, err := app.store.Conversations.GetByID(r.Context(), conversationID)
	if err != nil {
		switch err {
		case conversations.ErrNotFound:
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return nil, err
	}

	return conv, nil
}
