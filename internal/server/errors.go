package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/nutricalc/internal/db"
	"github.com/jonathan/nutricalc/internal/targets"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validation *ErrValidation
		badProfile *targets.InvalidProfileError
		badInput   *targets.InvalidInputError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &badProfile), errors.As(err, &badInput):
		return http.StatusBadRequest
	case errors.Is(err, db.ErrInvalidPlan):
		return http.StatusBadRequest
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
