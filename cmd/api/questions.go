package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"soruhub/internal/domain/questions"
	"soruhub/internal/notifications"

	"github.com/go-chi/chi/v5"
)

type SubmitQuestionPayload struct {
	Subject string `json:"subject" validate:"required,oneof=matematik fizik kimya biyoloji turkce tarih ingilizce"`
	Text    string `json:"text" validate:"required,max=2000"`
}

// SubmitQuestion godoc
//
//	@Summary		Submit a question
//	@Description	Students submit a question, optionally with a photo of the problem. Accepts multipart (photo) or plain JSON.
//	@Tags			questions
//	@Accept			mpfd
//	@Produce		json
//	@Param			subject	formData	string	true	"Subject"
//	@Param			text	formData	string	true	"Question text"
//	@Param			image	formData	file	false	"Photo of the problem"
//	@Success		201		{object}	questions.Question
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/questions [post]
func (app *application) submitQuestionHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	if user == nil {
		app.unauthorizedErrorResponse(w, r, errors.New("unauthorized request"))
		return
	}

	var payload SubmitQuestionPayload
	var imageURL string

	contentType := r.Header.Get("Content-Type")
	if len(contentType) >= 19 && contentType[:19] == "multipart/form-data" {
		if err := r.ParseMultipartForm(10 << 20); err != nil { // 10mb
			app.badRequestResponse(w, r, err)
			return
		}
		payload.Subject = r.FormValue("subject")
		payload.Text = r.FormValue("text")

		if file, _, err := r.FormFile("image"); err == nil {
			defer file.Close()

			publicID := fmt.Sprintf("question_%d_%d", user.ID, time.Now().UnixNano())
			url, err := app.uploadToCloudinaryWithID(file, "questions", publicID, false)
			if err != nil {
				app.internalServerError(w, r, err)
				return
			}
			imageURL = url
		}
	} else {
		if err := readJSON(w, r, &payload); err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	q := &questions.Question{
		StudentID: user.ID,
		Subject:   payload.Subject,
		Text:      payload.Text,
	}
	if imageURL != "" {
		q.ImageURL.String = imageURL
		q.ImageURL.Valid = true
	}

	ctx := r.Context()

	if err := app.store.Questions.Create(ctx, q); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	// The human-readable code depends on the row id, so it lands in a
	// second statement.
	code, err := app.questionCodes.Generate(q.ID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if err := app.store.Questions.SetCode(ctx, q.ID, code); err != nil {
		app.internalServerError(w, r, err)
		return
	}
	q.Code = code

	if err := app.jsonResponse(w, http.StatusCreated, q); err != nil {
		app.internalServerError(w, r, err)
	}
}

// ListMyQuestions godoc
//
//	@Summary		List my questions
//	@Tags			questions
//	@Produce		json
//	@Param			limit	query		int	false	"Page size"
//	@Param			offset	query		int	false	"Offset"
//	@Success		200		{array}		questions.Question
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/questions [get]
func (app *application) listMyQuestionsHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	if user == nil {
		app.unauthorizedErrorResponse(w, r, errors.New("unauthorized request"))
		return
	}

	limit, offset := paginationParams(r, 20)

	list, err := app.store.Questions.ListByStudent(r.Context(), user.ID, limit, offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, list); err != nil {
		app.internalServerError(w, r, err)
	}
}

// ListPendingQuestions godoc
//
//	@Summary		List unassigned questions
//	@Description	Coaches browse the pool of questions waiting for an answer, optionally filtered by subject
//	@Tags			questions
//	@Produce		json
//	@Param			subject	query		string	false	"Subject filter"
//	@Success		200		{array}		questions.Question
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/questions/pending [get]
func (app *application) listPendingQuestionsHandler(w http.ResponseWriter, r *http.Request) {
	subject := r.URL.Query().Get("subject")

	list, err := app.store.Questions.ListPending(r.Context(), subject, 50)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, list); err != nil {
		app.internalServerError(w, r, err)
	}
}

// GetQuestion godoc
//
//	@Summary		Get a question
//	@Tags			questions
//	@Produce		json
//	@Param			questionID	path		int	true	"Question ID"
//	@Success		200			{object}	questions.Question
//	@Failure		404			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/questions/{questionID} [get]
func (app *application) getQuestionHandler(w http.ResponseWriter, r *http.Request) {
	questionID, err := strconv.ParseInt(chi.URLParam(r, "questionID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	q, err := app.store.Questions.GetByID(r.Context(), questionID)
	if err != nil {
		switch err {
		case questions.ErrNotFound:
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	user := getUserFromContext(r)
	if user != nil && user.Role == "student" && q.StudentID != user.ID {
		app.forbiddenResponse(w, r)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, q); err != nil {
		app.internalServerError(w, r, err)
	}
}

// ClaimQuestion godoc
//
//	@Summary		Claim a pending question
//	@Description	Assigns the question to the requesting coach and notifies them on their devices
//	@Tags			questions
//	@Produce		json
//	@Param			questionID	path	int	true	"Question ID"
//	@Success		204
//	@Failure		404	{object}	error
//	@Failure		409	{object}	error	"Already claimed"
//	@Security		ApiKeyAuth
//	@Router			/questions/{questionID}/claim [post]
func (app *application) claimQuestionHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	questionID, err := strconv.ParseInt(chi.URLParam(r, "questionID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	q, err := app.store.Questions.GetByID(r.Context(), questionID)
	if err != nil {
		switch err {
		case questions.ErrNotFound:
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.store.Questions.AssignCoach(r.Context(), questionID, user.ID); err != nil {
		switch err {
		case questions.ErrNotFound:
			app.conflictResponse(w, r, errors.New("question already claimed"))
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	app.background(func(ctx context.Context) {
		if _, err := notifications.SendQuestionAssigned(ctx, app.dispatcher, user.ID, questionID, q.Subject); err != nil {
			app.logger.Errorw("question assigned push failed", "question_id", questionID, "error", err)
		}
	})

	w.WriteHeader(http.StatusNoContent)
}

type AnswerQuestionPayload struct {
	Answer string `json:"answer" validate:"required,max=5000"`
}

// AnswerQuestion godoc
//
//	@Summary		Answer an assigned question
//	@Description	Stores the answer and pushes a notification to the student
//	@Tags			questions
//	@Accept			json
//	@Produce		json
//	@Param			questionID	path	int						true	"Question ID"
//	@Param			payload		body	AnswerQuestionPayload	true	"Answer"
//	@Success		204
//	@Failure		404	{object}	error
//	@Failure		409	{object}	error	"Already answered"
//	@Security		ApiKeyAuth
//	@Router			/questions/{questionID}/answer [post]
func (app *application) answerQuestionHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	questionID, err := strconv.ParseInt(chi.URLParam(r, "questionID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var payload AnswerQuestionPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	q, err := app.store.Questions.GetByID(r.Context(), questionID)
	if err != nil {
		switch err {
		case questions.ErrNotFound:
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.store.Questions.Answer(r.Context(), questionID, user.ID, payload.Answer); err != nil {
		switch err {
		case questions.ErrAlreadyAnswered:
			app.conflictResponse(w, r, err)
		case questions.ErrNotFound:
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	app.background(func(ctx context.Context) {
		if _, err := notifications.SendQuestionAnswered(ctx, app.dispatcher, q.StudentID, questionID, user.FullName()); err != nil {
			app.logger.Errorw("question answered push failed", "question_id", questionID, "error", err)
		}
	})

	w.WriteHeader(http.StatusNoContent)
}

func paginationParams(r *http.Request, defaultLimit int) (int, int) {
	limit := defaultLimit
	offset := 0
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
