package main

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"foodiehub/internal/domain/restaurants"
	"foodiehub/internal/domain/reviews"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxReviewPhotos = 5

// readImageUpload parses the multipart form and pulls out a JPEG or PNG
// file from the named field. The caller closes the returned file.
func readImageUpload(w http.ResponseWriter, r *http.Request, field string, maxBytes int64) (multipart.File, error) {
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return nil, fmt.Errorf("unable to parse form, file size limit is %dMB", maxBytes>>20)
	}

	file, fileHeader, err := r.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve file")
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType != "image/jpeg" && contentType != "image/png" {
		file.Close()
		return nil, fmt.Errorf("only JPEG and PNG images are allowed")
	}

	return file, nil
}

// uploadReviewPhotoHandler godoc
//
//	@Summary		Upload a review photo
//	@Description	Uploads a photo to the caller's own review; at most 5 photos per review
//	@Tags			reviews
//	@Accept			mpfd
//	@Produce		json
//	@Param			reviewID	path		int		true	"Review ID"
//	@Param			photo		formData	file	true	"Photo file, size limit is 5MB"
//	@Success		200			{object}	reviews.Review
//	@Failure		403			{object}	error	"Not the author"
//	@Failure		404			{object}	error	"Review not found"
//	@Failure		422			{object}	error	"Photo limit reached"
//	@Security		ApiKeyAuth
//	@Router			/reviews/{reviewID}/photos [post]
func (app *application) uploadReviewPhotoHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	reviewID, err := strconv.ParseInt(chi.URLParam(r, "reviewID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid review ID"))
		return
	}

	ctx := r.Context()

	review, err := app.store.Reviews.GetByID(ctx, reviewID)
	if err != nil {
		switch {
		case errors.Is(err, reviews.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if review.UserID != user.ID {
		app.forbiddenResponse(w, r)
		return
	}

	if len(review.Photos) >= maxReviewPhotos {
		app.unprocessableEntityResponse(w, r, fmt.Errorf("a review can have at most %d photos", maxReviewPhotos))
		return
	}

	file, err := readImageUpload(w, r, "photo", 5<<20)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	defer file.Close()

	uploadResult, err := app.cld.Upload.Upload(context.Background(), file, uploader.UploadParams{
		PublicID:       uuid.NewString(),
		Folder:         "reviews",
		Transformation: "w_1200,c_limit,q_auto",
	})
	if err != nil {
		app.internalServerError(w, r, fmt.Errorf("cloudinary upload: %w", err))
		return
	}

	photos := append(review.Photos, uploadResult.SecureURL)
	updated, err := app.store.Reviews.Update(ctx, reviewID, reviews.UpdateFields{Photos: &photos})
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, updated)
}

// uploadRestaurantPhotoHandler godoc
//
//	@Summary		Upload a restaurant photo
//	@Description	Uploads a gallery photo for a restaurant (admin only)
//	@Tags			restaurants
//	@Accept			mpfd
//	@Produce		json
//	@Param			restaurantID	path		int		true	"Restaurant ID"
//	@Param			photo			formData	file	true	"Photo file, size limit is 5MB"
//	@Success		200				{object}	map[string]string
//	@Failure		404				{object}	error	"Restaurant not found"
//	@Security		ApiKeyAuth
//	@Router			/restaurants/{restaurantID}/photos [post]
func (app *application) uploadRestaurantPhotoHandler(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := strconv.ParseInt(chi.URLParam(r, "restaurantID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid restaurant ID"))
		return
	}

	ctx := r.Context()

	if _, err := app.store.Restaurants.GetByID(ctx, restaurantID); err != nil {
		switch {
		case errors.Is(err, restaurants.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	file, err := readImageUpload(w, r, "photo", 5<<20)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	defer file.Close()

	uploadResult, err := app.cld.Upload.Upload(context.Background(), file, uploader.UploadParams{
		PublicID:       uuid.NewString(),
		Folder:         "restaurants",
		Transformation: "w_1600,c_limit,q_auto",
	})
	if err != nil {
		app.internalServerError(w, r, fmt.Errorf("cloudinary upload: %w", err))
		return
	}

	if err := app.store.Restaurants.AddPhotoURL(ctx, restaurantID, uploadResult.SecureURL); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, map[string]string{"photo_url": uploadResult.SecureURL})
}

// deleteRestaurantPhotoHandler godoc
//
//	@Summary		Remove a restaurant photo
//	@Description	Removes a photo URL from a restaurant's gallery (admin only)
//	@Tags			restaurants
//	@Produce		json
//	@Param			restaurantID	path		int		true	"Restaurant ID"
//	@Param			photo_url		query		string	true	"Photo URL to remove"
//	@Success		200				{object}	map[string]string
//	@Failure		404				{object}	error	"Restaurant not found"
//	@Security		ApiKeyAuth
//	@Router			/restaurants/{restaurantID}/photos [delete]
func (app *application) deleteRestaurantPhotoHandler(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := strconv.ParseInt(chi.URLParam(r, "restaurantID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid restaurant ID"))
		return
	}

	photoURL := r.URL.Query().Get("photo_url")
	if photoURL == "" {
		app.badRequestResponse(w, r, errors.New("photo_url query parameter is required"))
		return
	}

	if err := app.store.Restaurants.RemovePhotoURL(r.Context(), restaurantID, photoURL); err != nil {
		switch {
		case errors.Is(err, restaurants.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	app.jsonResponse(w, http.StatusOK, map[string]string{"message": "photo removed"})
}
