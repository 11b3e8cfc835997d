package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"foodiehub/internal/domain/restaurants"
	"foodiehub/internal/params"

	"github.com/go-chi/chi/v5"
)

type createRestaurantPayload struct {
	Name         string            `json:"name" validate:"required,min=2,max=255"`
	Cuisine      string            `json:"cuisine" validate:"required,min=2,max=100"`
	Location     string            `json:"location" validate:"required,min=2,max=255"`
	Address      string            `json:"address" validate:"required,min=5,max=500"`
	Phone        *string           `json:"phone" validate:"omitempty,max=20"`
	Description  *string           `json:"description" validate:"omitempty,max=2000"`
	PriceRange   string            `json:"price_range" validate:"required,pricerange"`
	OpeningHours map[string]string `json:"opening_hours"`
	Latitude     *float64          `json:"latitude" validate:"omitempty,latitude"`
	Longitude    *float64          `json:"longitude" validate:"omitempty,longitude"`
	OwnerID      *int64            `json:"owner_id" validate:"omitempty,min=1"`
}

// createRestaurantHandler godoc
//
//	@Summary		Create a restaurant
//	@Description	Registers a new restaurant (admin only)
//	@Tags			restaurants
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		createRestaurantPayload	true	"Restaurant payload"
//	@Success		201		{object}	restaurants.Restaurant
//	@Failure		422		{object}	error	"Validation failed"
//	@Security		ApiKeyAuth
//	@Router			/restaurants [post]
func (app *application) createRestaurantHandler(w http.ResponseWriter, r *http.Request) {
	var payload createRestaurantPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	restaurant := &restaurants.Restaurant{
		Name:         payload.Name,
		Cuisine:      payload.Cuisine,
		Location:     payload.Location,
		Address:      payload.Address,
		Phone:        payload.Phone,
		Description:  payload.Description,
		PriceRange:   payload.PriceRange,
		OpeningHours: payload.OpeningHours,
		Latitude:     payload.Latitude,
		Longitude:    payload.Longitude,
		OwnerID:      payload.OwnerID,
		IsActive:     true,
	}

	if err := app.store.Restaurants.Create(r.Context(), restaurant); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusCreated, restaurant)
}

// getRestaurantHandler godoc
//
//	@Summary		Get restaurant detail
//	@Description	Returns one restaurant with its cached rating aggregate
//	@Tags			restaurants
//	@Produce		json
//	@Param			restaurantID	path		int	true	"Restaurant ID"
//	@Success		200				{object}	restaurants.Restaurant
//	@Failure		404				{object}	error	"Restaurant not found"
//	@Router			/restaurants/{restaurantID} [get]
func (app *application) getRestaurantHandler(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := strconv.ParseInt(chi.URLParam(r, "restaurantID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid restaurant ID"))
		return
	}

	restaurant, err := app.store.Restaurants.GetByID(r.Context(), restaurantID)
	if err != nil {
		switch {
		case errors.Is(err, restaurants.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	app.jsonResponse(w, http.StatusOK, restaurant)
}

// listRestaurantsHandler godoc
//
//	@Summary		List restaurants
//	@Description	Lists active restaurants, best rated first
//	@Tags			restaurants
//	@Produce		json
//	@Param			cuisine		query		string	false	"Filter by cuisine"
//	@Param			price_range	query		string	false	"Filter by price range ($..$$$$)"
//	@Param			min_rating	query		number	false	"Minimum average rating"
//	@Param			search		query		string	false	"Search name and description"
//	@Param			page		query		int		false	"Page number"		default(1)
//	@Param			per_page	query		int		false	"Items per page"	default(15)
//	@Success		200			{object}	map[string]any
//	@Router			/restaurants [get]
func (app *application) listRestaurantsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := params.ParsePagination(q)

	filter := restaurants.Filter{
		Limit:  p.PerPage,
		Offset: p.Offset,
	}

	if v := q.Get("cuisine"); v != "" {
		filter.Cuisine = &v
	}
	if v := q.Get("price_range"); v != "" {
		filter.PriceRange = &v
	}
	if v, err := strconv.ParseFloat(q.Get("min_rating"), 64); err == nil && v > 0 {
		filter.MinRating = &v
	}
	if v := q.Get("search"); v != "" {
		filter.Search = &v
	}

	list, total, err := app.store.Restaurants.List(r.Context(), filter)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	// Signed-in callers get is_favorite on every row; anonymous listings
	// omit the field.
	if user := app.userFromBearer(r); user != nil {
		ids, err := app.store.Favorites.IDsByUser(r.Context(), user.ID)
		if err != nil {
			app.internalServerError(w, r, err)
			return
		}
		for i := range list {
			_, fav := ids[list[i].ID]
			list[i].IsFavorite = &fav
		}
	}

	p.ComputeMeta(total)

	app.paginatedResponse(w, http.StatusOK, list, p)
}

type updateRestaurantPayload struct {
	Name         *string            `json:"name" validate:"omitempty,min=2,max=255"`
	Cuisine      *string            `json:"cuisine" validate:"omitempty,min=2,max=100"`
	Location     *string            `json:"location" validate:"omitempty,min=2,max=255"`
	Address      *string            `json:"address" validate:"omitempty,min=5,max=500"`
	Phone        *string            `json:"phone" validate:"omitempty,max=20"`
	Description  *string            `json:"description" validate:"omitempty,max=2000"`
	PriceRange   *string            `json:"price_range" validate:"omitempty,pricerange"`
	OpeningHours *map[string]string `json:"opening_hours"`
	Latitude     *float64           `json:"latitude" validate:"omitempty,latitude"`
	Longitude    *float64           `json:"longitude" validate:"omitempty,longitude"`
	IsActive     *bool              `json:"is_active"`
}

// updateRestaurantHandler godoc
//
//	@Summary		Update a restaurant
//	@Description	Updates only the supplied fields (admin or owner). Rating fields are never writable here.
//	@Tags			restaurants
//	@Accept			json
//	@Produce		json
//	@Param			restaurantID	path		int						true	"Restaurant ID"
//	@Param			payload			body		updateRestaurantPayload	true	"Fields to update"
//	@Success		200				{object}	restaurants.Restaurant
//	@Failure		403				{object}	error	"Not admin or owner"
//	@Failure		404				{object}	error	"Restaurant not found"
//	@Security		ApiKeyAuth
//	@Router			/restaurants/{restaurantID} [patch]
func (app *application) updateRestaurantHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	restaurantID, err := strconv.ParseInt(chi.URLParam(r, "restaurantID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid restaurant ID"))
		return
	}

	ctx := r.Context()

	if !user.IsAdmin {
		isOwner, err := app.store.Restaurants.IsOwner(ctx, restaurantID, user.ID)
		if err != nil {
			switch {
			case errors.Is(err, restaurants.ErrNotFound):
				app.notFoundResponse(w, r, err)
			default:
				app.internalServerError(w, r, err)
			}
			return
		}
		if !isOwner {
			app.forbiddenResponse(w, r)
			return
		}
	}

	var payload updateRestaurantPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	updateData := make(map[string]interface{})
	if payload.Name != nil {
		updateData["name"] = *payload.Name
	}
	if payload.Cuisine != nil {
		updateData["cuisine"] = *payload.Cuisine
	}
	if payload.Location != nil {
		updateData["location"] = *payload.Location
	}
	if payload.Address != nil {
		updateData["address"] = *payload.Address
	}
	if payload.Phone != nil {
		updateData["phone"] = *payload.Phone
	}
	if payload.Description != nil {
		updateData["description"] = *payload.Description
	}
	if payload.PriceRange != nil {
		updateData["price_range"] = *payload.PriceRange
	}
	if payload.OpeningHours != nil {
		updateData["opening_hours"] = *payload.OpeningHours
	}
	if payload.Latitude != nil {
		updateData["latitude"] = *payload.Latitude
	}
	if payload.Longitude != nil {
		updateData["longitude"] = *payload.Longitude
	}
	if payload.IsActive != nil {
		updateData["is_active"] = *payload.IsActive
	}

	if len(updateData) == 0 {
		app.badRequestResponse(w, r, fmt.Errorf("no fields to update"))
		return
	}

	if err := app.store.Restaurants.Update(ctx, restaurantID, updateData); err != nil {
		switch {
		case errors.Is(err, restaurants.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	restaurant, err := app.store.Restaurants.GetByID(ctx, restaurantID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, restaurant)
}

// deleteRestaurantHandler godoc
//
//	@Summary		Delete a restaurant
//	@Description	Soft-deletes a restaurant (admin only); reviews are kept
//	@Tags			restaurants
//	@Produce		json
//	@Param			restaurantID	path		int	true	"Restaurant ID"
//	@Success		200				{object}	map[string]string
//	@Failure		404				{object}	error	"Restaurant not found"
//	@Security		ApiKeyAuth
//	@Router			/restaurants/{restaurantID} [delete]
func (app *application) deleteRestaurantHandler(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := strconv.ParseInt(chi.URLParam(r, "restaurantID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid restaurant ID"))
		return
	}

	if err := app.store.Restaurants.Delete(r.Context(), restaurantID); err != nil {
		switch {
		case errors.Is(err, restaurants.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	app.jsonResponse(w, http.StatusOK, map[string]string{"message": "restaurant deleted"})
}

// recomputeRatingHandler godoc
//
//	@Summary		Rebuild a restaurant's cached rating
//	@Description	Recomputes average_rating, review_count and the breakdown from the approved reviews (admin only)
//	@Tags			admin
//	@Produce		json
//	@Param			restaurantID	path		int	true	"Restaurant ID"
//	@Success		200				{object}	restaurants.Restaurant
//	@Failure		404				{object}	error	"Restaurant not found"
//	@Security		ApiKeyAuth
//	@Router			/admin/restaurants/{restaurantID}/recompute-rating [post]
func (app *application) recomputeRatingHandler(w http.ResponseWriter, r *http.Request) {
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

	if err := app.store.Reviews.RecomputeRating(ctx, restaurantID); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	restaurant, err := app.store.Restaurants.GetByID(ctx, restaurantID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, restaurant)
}
