package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"foodiehub/internal/domain/users"
	"foodiehub/internal/mailer"

	"github.com/golang-jwt/jwt/v5"
)

type RegisterUserPayload struct {
	FirstName string `json:"first_name" validate:"required,max=50"`
	LastName  string `json:"last_name" validate:"required,max=50"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type UserWithTokens struct {
	*users.User `json:"user"`
	Tokens      AuthTokens `json:"tokens"`
}

// registerUserHandler godoc
//
//	@Summary		Registers a user
//	@Description	Registers a user and returns access and refresh tokens
//	@Tags			authentication
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		RegisterUserPayload	true	"User credentials"
//	@Success		201		{object}	UserWithTokens		"User registered"
//	@Failure		422		{object}	error				"Validation failed"
//	@Failure		500		{object}	error				"Internal Server Error"
//	@Router			/authentication/user [post]
func (app *application) registerUserHandler(w http.ResponseWriter, r *http.Request) {
	var payload RegisterUserPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	user := &users.User{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
	}
	// hash the user password.
	if err := user.Password.Set(payload.Password); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	ctx := r.Context()

	if err := app.store.Users.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, users.ErrDuplicateEmail):
			app.unprocessableEntityResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	accessToken, refreshToken, err := app.authenticator.GenerateTokens(user.ID, roleOf(user))
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.store.Users.SaveRefreshToken(ctx, user.ID, refreshToken); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	// Welcome email is best-effort; registration already succeeded.
	go func() {
		vars := struct {
			Username string
		}{
			Username: user.FirstName,
		}
		if _, err := app.mailer.Send(mailer.UserWelcomeTemplate, user.FirstName, user.Email, vars); err != nil {
			app.logger.Errorw("failed to send welcome email", "email", user.Email, "error", err.Error())
		}
	}()

	response := UserWithTokens{
		User: user,
		Tokens: AuthTokens{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
		},
	}

	if err := app.jsonResponse(w, http.StatusCreated, response); err != nil {
		app.internalServerError(w, r, err)
	}
}

type CreateTokenPayload struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// createTokenHandler godoc
//
//	@Summary		Creates a token pair
//	@Description	Creates access and refresh tokens for a registered user
//	@Tags			authentication
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CreateTokenPayload	true	"User credentials"
//	@Success		200		{object}	AuthTokens			"Token pair"
//	@Failure		401		{object}	error				"Unauthorized"
//	@Router			/authentication/token [post]
func (app *application) createTokenHandler(w http.ResponseWriter, r *http.Request) {
	var payload CreateTokenPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	ctx := r.Context()

	user, err := app.store.Users.GetByEmail(ctx, payload.Email)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrNotFound):
			app.unauthorizedErrorResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := user.Password.Compare(payload.Password); err != nil {
		app.unauthorizedErrorResponse(w, r, fmt.Errorf("invalid credentials"))
		return
	}

	if !user.IsActive || user.BannedAt != nil {
		app.unauthorizedErrorResponse(w, r, fmt.Errorf("account is not active"))
		return
	}

	accessToken, refreshToken, err := app.authenticator.GenerateTokens(user.ID, roleOf(user))
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.store.Users.SaveRefreshToken(ctx, user.ID, refreshToken); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.store.Users.RecordLogin(ctx, user.ID); err != nil {
		app.logger.Errorw("failed to record login", "user_id", user.ID, "error", err.Error())
	}

	tokens := AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}

	if err := app.jsonResponse(w, http.StatusOK, tokens); err != nil {
		app.internalServerError(w, r, err)
	}
}

type RefreshTokenPayload struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// refreshTokenHandler godoc
//
//	@Summary		Refreshes a token pair
//	@Description	Exchanges a valid refresh token for a new token pair
//	@Tags			authentication
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		RefreshTokenPayload	true	"Refresh token"
//	@Success		200		{object}	AuthTokens			"Token pair"
//	@Failure		401		{object}	error				"Unauthorized"
//	@Router			/authentication/refresh [post]
func (app *application) refreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	var payload RefreshTokenPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	jwtToken, err := app.authenticator.ValidateRefreshToken(payload.RefreshToken)
	if err != nil {
		app.unauthorizedErrorResponse(w, r, err)
		return
	}

	claims, _ := jwtToken.Claims.(jwt.MapClaims)

	userID, err := strconv.ParseInt(fmt.Sprintf("%.f", claims["sub"]), 10, 64)
	if err != nil {
		app.unauthorizedErrorResponse(w, r, err)
		return
	}

	ctx := r.Context()

	// The stored token must match: logging out or getting banned revokes
	// every previously issued refresh token.
	stored, err := app.store.Users.GetRefreshToken(ctx, userID)
	if err != nil || stored == "" || stored != payload.RefreshToken {
		app.unauthorizedErrorResponse(w, r, fmt.Errorf("refresh token is no longer valid"))
		return
	}

	user, err := app.store.Users.GetByID(ctx, userID)
	if err != nil {
		app.unauthorizedErrorResponse(w, r, err)
		return
	}

	accessToken, refreshToken, err := app.authenticator.GenerateTokens(user.ID, roleOf(user))
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.store.Users.SaveRefreshToken(ctx, user.ID, refreshToken); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	tokens := AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}

	if err := app.jsonResponse(w, http.StatusOK, tokens); err != nil {
		app.internalServerError(w, r, err)
	}
}

// logoutHandler godoc
//
//	@Summary		Logs out the current user
//	@Description	Revokes the stored refresh token
//	@Tags			authentication
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Security		ApiKeyAuth
//	@Router			/users/logout [post]
func (app *application) logoutHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	if err := app.store.Users.DeleteRefreshToken(r.Context(), user.ID); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func roleOf(user *users.User) string {
	if user.IsAdmin {
		return "admin"
	}
	return "user"
}
