package main

import (
	"errors"
	"net/http"
	"strconv"

	"foodiehub/internal/domain/favorites"

	"github.com/go-chi/chi/v5"
)

// addFavoriteHandler godoc
//
//	@Summary		Favorite a restaurant
//	@Description	Adds a restaurant to the caller's favorites
//	@Tags			favorites
//	@Produce		json
//	@Param			restaurantID	path		int	true	"Restaurant ID"
//	@Success		200				{object}	map[string]string
//	@Failure		404				{object}	error	"Restaurant not found"
//	@Failure		409				{object}	error	"Already favorited"
//	@Security		ApiKeyAuth
//	@Router			/restaurants/{restaurantID}/favorite [post]
func (app *application) addFavoriteHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	restaurantID, err := strconv.ParseInt(chi.URLParam(r, "restaurantID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid restaurant ID"))
		return
	}

	ctx := r.Context()

	active, err := app.store.Restaurants.IsActive(ctx, restaurantID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if !active {
		app.notFoundResponse(w, r, errors.New("restaurant not found"))
		return
	}

	if err := app.store.Favorites.Add(ctx, user.ID, restaurantID); err != nil {
		switch {
		case errors.Is(err, favorites.ErrAlreadyFavorite):
			app.conflictResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	app.jsonResponse(w, http.StatusOK, map[string]string{"message": "restaurant favorited"})
}

// removeFavoriteHandler godoc
//
//	@Summary		Unfavorite a restaurant
//	@Description	Removes a restaurant from the caller's favorites
//	@Tags			favorites
//	@Produce		json
//	@Param			restaurantID	path		int	true	"Restaurant ID"
//	@Success		200				{object}	map[string]string
//	@Security		ApiKeyAuth
//	@Router			/restaurants/{restaurantID}/favorite [delete]
func (app *application) removeFavoriteHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	restaurantID, err := strconv.ParseInt(chi.URLParam(r, "restaurantID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid restaurant ID"))
		return
	}

	if err := app.store.Favorites.Remove(r.Context(), user.ID, restaurantID); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, map[string]string{"message": "restaurant unfavorited"})
}

// listFavoritesHandler godoc
//
//	@Summary		List favorite restaurants
//	@Description	Returns the caller's favorited restaurants, most recent first
//	@Tags			favorites
//	@Produce		json
//	@Success		200	{array}	restaurants.Restaurant
//	@Security		ApiKeyAuth
//	@Router			/users/favorites [get]
func (app *application) listFavoritesHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	list, err := app.store.Favorites.ListByUser(r.Context(), user.ID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, list)
}
