package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"foodiehub/internal/domain/reviews"
	"foodiehub/internal/params"

	"github.com/go-chi/chi/v5"
)

type createReviewPayload struct {
	RestaurantID   int64    `json:"restaurant_id" validate:"required,min=1"`
	OverallRating  int      `json:"overall_rating" validate:"required,min=1,max=5"`
	FoodRating     *int     `json:"food_rating" validate:"omitempty,min=1,max=5"`
	ServiceRating  *int     `json:"service_rating" validate:"omitempty,min=1,max=5"`
	AmbianceRating *int     `json:"ambiance_rating" validate:"omitempty,min=1,max=5"`
	ValueRating    *int     `json:"value_rating" validate:"omitempty,min=1,max=5"`
	Title          *string  `json:"title" validate:"omitempty,max=255"`
	Comment        string   `json:"comment" validate:"required,min=50,max=2000"`
	VisitDate      *string  `json:"visit_date" validate:"omitempty,datetime=2006-01-02"`
	Recommend      *bool    `json:"recommend"`
	Photos         []string `json:"photos" validate:"omitempty,max=5,dive,url"`
}

// parseVisitDate converts the YYYY-MM-DD payload string and rejects dates
// in the future. The format itself was already checked by the validator.
func parseVisitDate(raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}

	visit, err := time.Parse("2006-01-02", *raw)
	if err != nil {
		return nil, fmt.Errorf("visit_date must be a date in YYYY-MM-DD format")
	}
	if visit.After(time.Now()) {
		return nil, fmt.Errorf("visit_date must not be in the future")
	}
	return &visit, nil
}

// createReviewHandler godoc
//
//	@Summary		Create a review
//	@Description	Creates a pending review for a restaurant; one review per user per restaurant
//	@Tags			reviews
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		createReviewPayload	true	"Review payload"
//	@Success		201		{object}	reviews.Review
//	@Failure		422		{object}	error	"Validation failed or already reviewed"
//	@Failure		401		{object}	error	"Unauthorized"
//	@Security		ApiKeyAuth
//	@Router			/reviews [post]
func (app *application) createReviewHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	var payload createReviewPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	visitDate, err := parseVisitDate(payload.VisitDate)
	if err != nil {
		app.unprocessableEntityResponse(w, r, err)
		return
	}

	ctx := r.Context()

	active, err := app.store.Restaurants.IsActive(ctx, payload.RestaurantID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if !active {
		app.unprocessableEntityResponse(w, r, fmt.Errorf("restaurant does not exist or is not active"))
		return
	}

	// Pre-check for a friendlier message; the unique index still backs
	// this up against a concurrent create.
	exists, err := app.store.Reviews.HasReview(ctx, payload.RestaurantID, user.ID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if exists {
		app.unprocessableEntityResponse(w, r, reviews.ErrDuplicateReview)
		return
	}

	review := &reviews.Review{
		UserID:         user.ID,
		RestaurantID:   payload.RestaurantID,
		OverallRating:  payload.OverallRating,
		FoodRating:     payload.FoodRating,
		ServiceRating:  payload.ServiceRating,
		AmbianceRating: payload.AmbianceRating,
		ValueRating:    payload.ValueRating,
		Title:          payload.Title,
		Comment:        payload.Comment,
		VisitDate:      visitDate,
		Recommend:      payload.Recommend,
		Photos:         payload.Photos,
	}

	if err := app.store.Reviews.Create(ctx, review); err != nil {
		switch {
		case errors.Is(err, reviews.ErrDuplicateReview):
			app.unprocessableEntityResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	// Re-read to attach the user and restaurant summary fields.
	created, err := app.store.Reviews.GetByID(ctx, review.ID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusCreated, created)
}

type updateReviewPayload struct {
	OverallRating  *int      `json:"overall_rating" validate:"omitempty,min=1,max=5"`
	FoodRating     *int      `json:"food_rating" validate:"omitempty,min=1,max=5"`
	ServiceRating  *int      `json:"service_rating" validate:"omitempty,min=1,max=5"`
	AmbianceRating *int      `json:"ambiance_rating" validate:"omitempty,min=1,max=5"`
	ValueRating    *int      `json:"value_rating" validate:"omitempty,min=1,max=5"`
	Title          *string   `json:"title" validate:"omitempty,max=255"`
	Comment        *string   `json:"comment" validate:"omitempty,min=50,max=2000"`
	VisitDate      *string   `json:"visit_date" validate:"omitempty,datetime=2006-01-02"`
	Recommend      *bool     `json:"recommend"`
	Photos         *[]string `json:"photos" validate:"omitempty,max=5,dive,url"`
}

// updateReviewHandler godoc
//
//	@Summary		Update own review
//	@Description	Updates only the supplied fields of a review authored by the caller
//	@Tags			reviews
//	@Accept			json
//	@Produce		json
//	@Param			reviewID	path		int					true	"Review ID"
//	@Param			payload		body		updateReviewPayload	true	"Fields to update"
//	@Success		200			{object}	reviews.Review
//	@Failure		403			{object}	error	"Not the author"
//	@Failure		404			{object}	error	"Review not found"
//	@Failure		422			{object}	error	"Validation failed"
//	@Security		ApiKeyAuth
//	@Router			/reviews/{reviewID} [put]
func (app *application) updateReviewHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	reviewID, err := strconv.ParseInt(chi.URLParam(r, "reviewID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid review ID"))
		return
	}

	var payload updateReviewPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	visitDate, err := parseVisitDate(payload.VisitDate)
	if err != nil {
		app.unprocessableEntityResponse(w, r, err)
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

	// Only the author edits review content, admins included.
	if review.UserID != user.ID {
		app.forbiddenResponse(w, r)
		return
	}

	fields := reviews.UpdateFields{
		OverallRating:  payload.OverallRating,
		FoodRating:     payload.FoodRating,
		ServiceRating:  payload.ServiceRating,
		AmbianceRating: payload.AmbianceRating,
		ValueRating:    payload.ValueRating,
		Title:          payload.Title,
		Comment:        payload.Comment,
		VisitDate:      visitDate,
		Recommend:      payload.Recommend,
		Photos:         payload.Photos,
	}

	if fields.Empty() {
		app.badRequestResponse(w, r, fmt.Errorf("no fields to update"))
		return
	}

	updated, err := app.store.Reviews.Update(ctx, reviewID, fields)
	if err != nil {
		switch {
		case errors.Is(err, reviews.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	app.jsonResponse(w, http.StatusOK, updated)
}

// deleteReviewHandler godoc
//
//	@Summary		Delete a review
//	@Description	Deletes a review authored by the caller (admins may delete any)
//	@Tags			reviews
//	@Produce		json
//	@Param			reviewID	path		int	true	"Review ID"
//	@Success		200			{object}	map[string]string
//	@Failure		403			{object}	error	"Not the author"
//	@Failure		404			{object}	error	"Review not found"
//	@Security		ApiKeyAuth
//	@Router			/reviews/{reviewID} [delete]
func (app *application) deleteReviewHandler(w http.ResponseWriter, r *http.Request) {
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

	if review.UserID != user.ID && !user.IsAdmin {
		app.forbiddenResponse(w, r)
		return
	}

	if err := app.store.Reviews.Delete(ctx, reviewID); err != nil {
		switch {
		case errors.Is(err, reviews.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	app.jsonResponse(w, http.StatusOK, map[string]string{"message": "review deleted"})
}

// parseReviewFilter reads the query params shared by the public and admin
// review listings.
func parseReviewFilter(r *http.Request) (reviews.Filter, params.Pagination) {
	q := r.URL.Query()
	p := params.ParsePagination(q)

	filter := reviews.Filter{
		SortBy: reviews.SortOrder(q.Get("sort_by")),
		Limit:  p.PerPage,
		Offset: p.Offset,
	}

	if v, err := strconv.ParseInt(q.Get("restaurant_id"), 10, 64); err == nil && v > 0 {
		filter.RestaurantID = &v
	}
	if v, err := strconv.ParseInt(q.Get("user_id"), 10, 64); err == nil && v > 0 {
		filter.UserID = &v
	}
	if v, err := strconv.Atoi(q.Get("rating")); err == nil && v >= 1 && v <= 5 {
		filter.Rating = &v
	}
	if v, err := strconv.Atoi(q.Get("min_rating")); err == nil && v >= 1 && v <= 5 {
		filter.MinRating = &v
	}

	return filter, p
}

// listReviewsHandler godoc
//
//	@Summary		List reviews
//	@Description	Public review listing; only approved reviews are ever returned
//	@Tags			reviews
//	@Produce		json
//	@Param			restaurant_id	query		int		false	"Filter by restaurant"
//	@Param			user_id			query		int		false	"Filter by author"
//	@Param			rating			query		int		false	"Exact overall rating"
//	@Param			min_rating		query		int		false	"Minimum overall rating"
//	@Param			sort_by			query		string	false	"newest|oldest|highest|lowest"
//	@Param			page			query		int		false	"Page number"		default(1)
//	@Param			per_page		query		int		false	"Items per page"	default(15)
//	@Success		200				{object}	map[string]any
//	@Router			/reviews [get]
func (app *application) listReviewsHandler(w http.ResponseWriter, r *http.Request) {
	filter, p := parseReviewFilter(r)

	// Status gating: the public listing is pinned to approved no matter
	// what the query string asks for.
	approved := reviews.StatusApproved
	filter.Status = &approved
	filter.Search = nil

	list, total, err := app.store.Reviews.List(r.Context(), filter)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	p.ComputeMeta(total)

	app.paginatedResponse(w, http.StatusOK, list, p)
}
