package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/uadlabs/forge/internal/jobs"
	"github.com/uadlabs/forge/internal/registry"
	"github.com/uadlabs/forge/internal/tuner"
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
	var notFound *registry.NotFoundError
	var transition *jobs.TransitionError
	var parse *tuner.ParseError
	var validation *ErrValidation

	switch {
	case errors.Is(err, jobs.ErrNotFound), errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &transition):
		return http.StatusConflict
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &parse):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
