// Package server provides the OpenPay HTTP REST API.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/openpay/internal/config"
	"github.com/jonathan/openpay/internal/db"
	"github.com/jonathan/openpay/internal/pipeline"
)

// ErrInvalidCredentials indicates a wrong moderator password.
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid moderator password"
}

// ErrValidation indicates request validation failure.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error.
func HTTPStatus(err error) int {
	var (
		validation   *ErrValidation
		credentials  *ErrInvalidCredentials
		invalid      *pipeline.InvalidInputError
		insufficient *pipeline.InsufficientDataError
		fields       validator.ValidationErrors
	)

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validation), errors.As(err, &invalid), errors.As(err, &fields):
		return http.StatusBadRequest
	case errors.As(err, &credentials):
		return http.StatusUnauthorized
	case errors.Is(err, pipeline.ErrNoJobFound), errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &insufficient):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrSourcesUnavailable),
		errors.Is(err, pipeline.ErrStoreUnavailable),
		errors.Is(err, config.ErrNoModeratorPassword):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage is the client-facing text of err. Internal failures are not
// described beyond their status.
func errorMessage(err error) string {
	var fields validator.ValidationErrors
	if errors.As(err, &fields) {
		return extractValidationErrors(fields)
	}
	if HTTPStatus(err) == http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}

// extractValidationErrors describes the first failed field of a validator error.
func extractValidationErrors(err error) string {
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		fe := fields[0]
		return fmt.Sprintf("validation error: %s - %s", fe.Field(), fe.Tag())
	}
	return "validation error: invalid request"
}
