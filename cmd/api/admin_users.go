package main

import (
	"errors"
	"net/http"
	"strconv"

	"foodiehub/internal/domain/users"
	"foodiehub/internal/params"

	"github.com/go-chi/chi/v5"
)

// adminListUsersHandler godoc
//
//	@Summary		List users
//	@Description	Lists users for administration, with name/email search
//	@Tags			admin
//	@Produce		json
//	@Param			search		query		string	false	"Search name and email"
//	@Param			is_active	query		bool	false	"Filter by active flag"
//	@Param			is_admin	query		bool	false	"Filter by admin flag"
//	@Param			page		query		int		false	"Page number"		default(1)
//	@Param			per_page	query		int		false	"Items per page"	default(15)
//	@Success		200			{object}	map[string]any
//	@Failure		403			{object}	error	"Not an admin"
//	@Security		ApiKeyAuth
//	@Router			/admin/users [get]
func (app *application) adminListUsersHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := params.ParsePagination(q)

	var filters users.AdminListFilters
	if v := q.Get("search"); v != "" {
		filters.Search = &v
	}
	if v, err := strconv.ParseBool(q.Get("is_active")); err == nil {
		filters.IsActive = &v
	}
	if v, err := strconv.ParseBool(q.Get("is_admin")); err == nil {
		filters.IsAdmin = &v
	}

	list, total, err := app.store.Users.ListAdmin(r.Context(), filters, p.PerPage, p.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	p.ComputeMeta(total)

	app.paginatedResponse(w, http.StatusOK, list, p)
}

// banUserHandler godoc
//
//	@Summary		Ban a user
//	@Description	Bans a user; their sessions are revoked and new logins rejected
//	@Tags			admin
//	@Produce		json
//	@Param			userID	path		int	true	"User ID"
//	@Success		200		{object}	map[string]string
//	@Failure		404		{object}	error	"User not found"
//	@Security		ApiKeyAuth
//	@Router			/admin/users/{userID}/ban [post]
func (app *application) banUserHandler(w http.ResponseWriter, r *http.Request) {
	admin := getUserFromContext(r)

	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid user ID"))
		return
	}

	if userID == admin.ID {
		app.badRequestResponse(w, r, errors.New("you cannot ban yourself"))
		return
	}

	if err := app.store.Users.Ban(r.Context(), userID); err != nil {
		switch {
		case errors.Is(err, users.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	app.jsonResponse(w, http.StatusOK, map[string]string{"message": "user banned"})
}

// unbanUserHandler godoc
//
//	@Summary		Unban a user
//	@Tags			admin
//	@Produce		json
//	@Param			userID	path		int	true	"User ID"
//	@Success		200		{object}	map[string]string
//	@Failure		404		{object}	error	"User not found"
//	@Security		ApiKeyAuth
//	@Router			/admin/users/{userID}/unban [post]
func (app *application) unbanUserHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid user ID"))
		return
	}

	if err := app.store.Users.Unban(r.Context(), userID); err != nil {
		switch {
		case errors.Is(err, users.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	app.jsonResponse(w, http.StatusOK, map[string]string{"message": "user unbanned"})
}

// deleteUserHandler godoc
//
//	@Summary		Delete a user
//	@Description	Soft-deletes a user account; their reviews are kept
//	@Tags			admin
//	@Produce		json
//	@Param			userID	path		int	true	"User ID"
//	@Success		200		{object}	map[string]string
//	@Failure		404		{object}	error	"User not found"
//	@Security		ApiKeyAuth
//	@Router			/admin/users/{userID} [delete]
func (app *application) deleteUserHandler(w http.ResponseWriter, r *http.Request) {
	admin := getUserFromContext(r)

	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid user ID"))
		return
	}

	if userID == admin.ID {
		app.badRequestResponse(w, r, errors.New("you cannot delete yourself"))
		return
	}

	if err := app.store.Users.Delete(r.Context(), userID); err != nil {
		switch {
		case errors.Is(err, users.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	app.jsonResponse(w, http.StatusOK, map[string]string{"message": "user deleted"})
}
