package main

import (
	"errors"
	"fmt"
	"net/http"

	"soruhub/internal/domain/users"
)

type userKey string

const userCtx userKey = "user"

func getUserFromContext(r *http.Request) *users.User {
	if user, ok := r.Context().Value(userCtx).(*users.User); ok {
		return user
	}
	return nil
}

type UpdateUserPayload struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=50"`
	LastName  *string `json:"last_name" validate:"omitempty,max=50"`
	Phone     *string `json:"phone" validate:"omitempty,trphone"`
	Grade     *int16  `json:"grade" validate:"omitempty,min=1,max=12"`
}

// UpdateUser godoc
//
//	@Summary		Update profile fields
//	@Description	Updates the provided subset of the current user's profile
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	UpdateUserPayload	true	"Fields to update"
//	@Success		204
//	@Failure		400	{object}	ErrorBadRequestResponse
//	@Failure		500	{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/users [put]
func (app *application) updateUserHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	if user == nil {
		app.unauthorizedErrorResponse(w, r, errors.New("unauthorized request"))
		return
	}

	var payload UpdateUserPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	updates := map[string]interface{}{}
	if payload.FirstName != nil {
		updates["first_name"] = *payload.FirstName
	}
	if payload.LastName != nil {
		updates["last_name"] = *payload.LastName
	}
	if payload.Phone != nil {
		updates["phone"] = *payload.Phone
	}
	if payload.Grade != nil {
		updates["grade"] = *payload.Grade
	}

	if len(updates) == 0 {
		app.badRequestResponse(w, r, errors.New("no fields to update"))
		return
	}

	if err := app.store.Users.UpdateUser(r.Context(), user.ID, updates); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UploadProfilePicture godoc
//
//	@Summary		Upload profile picture
//	@Description	Uploads the image to Cloudinary and stores its URL
//	@Tags			users
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			image	formData	file	true	"Profile image"
//	@Success		200		{object}	map[string]string
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/users/profile-picture [post]
func (app *application) uploadProfilePictureHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	if user == nil {
		app.unauthorizedErrorResponse(w, r, errors.New("unauthorized request"))
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil { // 10mb
		app.badRequestResponse(w, r, err)
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	defer file.Close()

	// drop the previous asset so Cloudinary storage does not accumulate
	if oldURL, err := app.store.Users.GetProfileUrl(r.Context(), user.ID); err == nil && oldURL != nil && *oldURL != "" {
		if err := app.deletePhotoFromCloudinary(*oldURL); err != nil {
			app.logger.Warnw("could not delete old profile picture", "error", err)
		}
	}

	publicID := fmt.Sprintf("user_%d_profile", user.ID)
	url, err := app.uploadToCloudinaryWithID(file, "profiles", publicID, true)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.store.Users.SetProfile(r.Context(), url, user.ID); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, map[string]string{"profile_picture_url": url}); err != nil {
		app.internalServerError(w, r, err)
	}
}
