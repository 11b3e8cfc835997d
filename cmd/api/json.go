package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"foodiehub/internal/params"

	"github.com/go-playground/validator/v10"
)

var Validate *validator.Validate

func init() {
	Validate = validator.New(validator.WithRequiredStructEnabled())

	// Register custom validation for price range tiers
	Validate.RegisterValidation("pricerange", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "$", "$$", "$$$", "$$$$":
			return true
		}
		return false
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// it parses body into Go struct.
func readJSON(w http.ResponseWriter, r *http.Request, data any) error {
	maxBytes := 1_048_578 //1mb
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(data)
}

func writeJSONError(w http.ResponseWriter, status int, message string) error {
	type envelope struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Status  int    `json:"status"`
	}

	return writeJSON(w, status, &envelope{
		Success: false,
		Message: message,
		Status:  status,
	})
}

func writeJSONValidationError(w http.ResponseWriter, status int, message string, fieldErrors map[string]string) error {
	type envelope struct {
		Success bool              `json:"success"`
		Message string            `json:"message"`
		Status  int               `json:"status"`
		Errors  map[string]string `json:"errors,omitempty"`
	}

	return writeJSON(w, status, &envelope{
		Success: false,
		Message: message,
		Status:  status,
		Errors:  fieldErrors,
	})
}

// fieldErrors flattens validator.ValidationErrors into a field -> message
// map for the error envelope. Non-validator errors produce a nil map.
func fieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			out[field] = "this field is required"
		case "min":
			out[field] = "value is below the minimum of " + fe.Param()
		case "max":
			out[field] = "value is above the maximum of " + fe.Param()
		case "email":
			out[field] = "must be a valid email address"
		case "datetime":
			out[field] = "must be a date in YYYY-MM-DD format"
		case "pricerange":
			out[field] = "must be one of $, $$, $$$, $$$$"
		default:
			out[field] = "invalid value"
		}
	}
	return out
}

func (app *application) jsonResponse(w http.ResponseWriter, status int, data any) error {
	type envelope struct {
		Success bool `json:"success"`
		Data    any  `json:"data"`
	}
	return writeJSON(w, status, &envelope{Success: true, Data: data})
}

func (app *application) paginatedResponse(w http.ResponseWriter, status int, data any, p params.Pagination) error {
	type envelope struct {
		Success    bool              `json:"success"`
		Data       any               `json:"data"`
		Pagination params.Pagination `json:"pagination"`
	}
	return writeJSON(w, status, &envelope{Success: true, Data: data, Pagination: p})
}
