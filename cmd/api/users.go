package main

import (
	"context"
	"fmt"
	"net/http"

	"foodiehub/internal/domain/users"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

type userKey string

const userCtx userKey = "user"

func getUserFromContext(r *http.Request) *users.User {
	user, _ := r.Context().Value(userCtx).(*users.User)
	return user
}

// for cloudinary uploadParams
func boolPtr(b bool) *bool {
	return &b
}

type UpdateUserPayload struct {
	FirstName          *string `json:"first_name" validate:"omitempty,max=50"`
	LastName           *string `json:"last_name" validate:"omitempty,max=50"`
	Bio                *string `json:"bio" validate:"omitempty,max=500"`
	Location           *string `json:"location" validate:"omitempty,max=100"`
	IsPublic           *bool   `json:"is_public"`
	EmailNotifications *bool   `json:"email_notifications"`
}

// updateUserHandler godoc
//
//	@Summary		Update own profile
//	@Description	Updates profile fields of the authenticated user; only supplied fields change
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		UpdateUserPayload	true	"Fields to update"
//	@Success		200		{object}	users.User
//	@Failure		422		{object}	error	"Validation failed"
//	@Security		ApiKeyAuth
//	@Router			/users [put]
func (app *application) updateUserHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	var payload UpdateUserPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	updateData := map[string]interface{}{}
	if payload.FirstName != nil {
		updateData["first_name"] = *payload.FirstName
	}
	if payload.LastName != nil {
		updateData["last_name"] = *payload.LastName
	}
	if payload.Bio != nil {
		updateData["bio"] = *payload.Bio
	}
	if payload.Location != nil {
		updateData["location"] = *payload.Location
	}
	if payload.IsPublic != nil {
		updateData["is_public"] = *payload.IsPublic
	}
	if payload.EmailNotifications != nil {
		updateData["email_notifications"] = *payload.EmailNotifications
	}

	if len(updateData) == 0 {
		app.badRequestResponse(w, r, fmt.Errorf("no fields to update"))
		return
	}

	ctx := r.Context()

	if err := app.store.Users.Update(ctx, user.ID, updateData); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	updated, err := app.store.Users.GetByID(ctx, user.ID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, updated)
}

// uploadProfilePictureHandler godoc
//
//	@Summary		Upload profile picture
//	@Description	Uploads a user's profile picture and saves the URL in the database
//	@Tags			users
//	@Accept			mpfd
//	@Produce		json
//	@Param			profile_picture	formData	file	true	"Profile picture file size limit is 2MB"
//	@Success		200				{object}	map[string]string
//	@Failure		400				{object}	error	"Unable to parse form or retrieve file"
//	@Failure		500				{object}	error	"Failed to upload image or save URL"
//	@Security		ApiKeyAuth
//	@Router			/users/profile-picture [post]
func (app *application) uploadProfilePictureHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	overwrite := boolPtr(true)

	// Parse the multipart form
	err := r.ParseMultipartForm(2 << 20) // 2 MB
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("unable to parse form, file size limit is 2MB"))
		return
	}

	file, fileHeader, err := r.FormFile("profile_picture")
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("unable to retrieve file"))
		return
	}
	defer file.Close()

	// Validate file type (allow only JPEG & PNG)
	contentType := fileHeader.Header.Get("Content-Type")
	if contentType != "image/jpeg" && contentType != "image/png" {
		app.badRequestResponse(w, r, fmt.Errorf("only JPEG and PNG images are allowed"))
		return
	}

	uploadParams := uploader.UploadParams{
		PublicID:       fmt.Sprintf("/%d", user.ID),
		Overwrite:      overwrite,
		Folder:         "avatars",
		Transformation: "w_300,h_300,c_fill,q_auto",
	}
	uploadResult, err := app.cld.Upload.Upload(context.Background(), file, uploadParams)
	if err != nil {
		app.internalServerError(w, r, fmt.Errorf("cloudinary upload: %w", err))
		return
	}

	if err := app.store.Users.SetAvatar(r.Context(), user.ID, uploadResult.SecureURL); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, map[string]string{"avatar_url": uploadResult.SecureURL})
}
