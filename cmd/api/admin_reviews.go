package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"foodiehub/internal/domain/reviews"
	"foodiehub/internal/mailer"

	"github.com/go-chi/chi/v5"
)

// adminListReviewsHandler godoc
//
//	@Summary		List reviews for moderation
//	@Description	Lists reviews in any status, with free-text search over comment, title, author and restaurant
//	@Tags			admin
//	@Produce		json
//	@Param			status			query		string	false	"pending|approved|rejected"
//	@Param			search			query		string	false	"Free text search"
//	@Param			restaurant_id	query		int		false	"Filter by restaurant"
//	@Param			user_id			query		int		false	"Filter by author"
//	@Param			sort_by			query		string	false	"newest|oldest|highest|lowest"
//	@Param			page			query		int		false	"Page number"		default(1)
//	@Param			per_page		query		int		false	"Items per page"	default(15)
//	@Success		200				{object}	map[string]any
//	@Failure		403				{object}	error	"Not an admin"
//	@Security		ApiKeyAuth
//	@Router			/admin/reviews [get]
func (app *application) adminListReviewsHandler(w http.ResponseWriter, r *http.Request) {
	filter, p := parseReviewFilter(r)

	q := r.URL.Query()
	if raw := q.Get("status"); raw != "" {
		status := reviews.Status(raw)
		if !status.Valid() {
			app.badRequestResponse(w, r, errors.New("status must be pending, approved or rejected"))
			return
		}
		filter.Status = &status
	}
	if v := q.Get("search"); v != "" {
		filter.Search = &v
	}

	list, total, err := app.store.Reviews.List(r.Context(), filter)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	p.ComputeMeta(total)

	app.paginatedResponse(w, http.StatusOK, list, p)
}

// approveReviewHandler godoc
//
//	@Summary		Approve a review
//	@Description	Moves a review to approved and recomputes the restaurant's rating
//	@Tags			admin
//	@Produce		json
//	@Param			reviewID	path		int	true	"Review ID"
//	@Success		200			{object}	reviews.Review
//	@Failure		404			{object}	error	"Review not found"
//	@Security		ApiKeyAuth
//	@Router			/admin/reviews/{reviewID}/approve [post]
func (app *application) approveReviewHandler(w http.ResponseWriter, r *http.Request) {
	reviewID, err := strconv.ParseInt(chi.URLParam(r, "reviewID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid review ID"))
		return
	}

	review, err := app.store.Reviews.Approve(r.Context(), reviewID)
	if err != nil {
		switch {
		case errors.Is(err, reviews.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	app.notifyReviewAuthor(review, mailer.ReviewApprovedTemplate, nil)

	app.jsonResponse(w, http.StatusOK, review)
}

type rejectReviewPayload struct {
	Reason *string `json:"reason" validate:"omitempty,max=500"`
}

// rejectReviewHandler godoc
//
//	@Summary		Reject a review
//	@Description	Moves a review to rejected with an optional reason and recomputes the restaurant's rating
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			reviewID	path		int					true	"Review ID"
//	@Param			payload		body		rejectReviewPayload	false	"Rejection reason"
//	@Success		200			{object}	reviews.Review
//	@Failure		404			{object}	error	"Review not found"
//	@Security		ApiKeyAuth
//	@Router			/admin/reviews/{reviewID}/reject [post]
func (app *application) rejectReviewHandler(w http.ResponseWriter, r *http.Request) {
	reviewID, err := strconv.ParseInt(chi.URLParam(r, "reviewID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid review ID"))
		return
	}

	var payload rejectReviewPayload
	if r.ContentLength > 0 {
		if err := readJSON(w, r, &payload); err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
		if err := Validate.Struct(payload); err != nil {
			app.failedValidationResponse(w, r, err)
			return
		}
	}

	review, err := app.store.Reviews.Reject(r.Context(), reviewID, payload.Reason)
	if err != nil {
		switch {
		case errors.Is(err, reviews.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	app.notifyReviewAuthor(review, mailer.ReviewRejectedTemplate, payload.Reason)

	app.jsonResponse(w, http.StatusOK, review)
}

// notifyReviewAuthor emails the review's author about a moderation
// decision. Best effort: failures are logged, never surfaced to the admin.
func (app *application) notifyReviewAuthor(review *reviews.Review, template string, reason *string) {
	go func() {
		ctx := context.Background()

		author, err := app.store.Users.GetByID(ctx, review.UserID)
		if err != nil {
			app.logger.Errorw("error fetching review author for notification", "error", err, "review_id", review.ID)
			return
		}
		if !author.EmailNotifications {
			return
		}

		data := map[string]any{
			"Username":       author.FirstName,
			"RestaurantName": review.RestaurantName,
		}
		if reason != nil {
			data["Reason"] = *reason
		}

		status, err := app.mailer.Send(template, author.FirstName, author.Email, data)
		if err != nil {
			app.logger.Errorw("error sending moderation email", "error", err, "review_id", review.ID)
			return
		}
		app.logger.Infow("moderation email sent", "status code", status, "review_id", review.ID)
	}()
}
