package mapper

import (
	"errors"
	"net/http"

	"github.com/tokern/dbcat/internal/domain"
)

// HTTPStatusFromDomainError maps domain errors to HTTP status codes.
func HTTPStatusFromDomainError(err error) int {
	var (
		notFound   *domain.NotFoundError
		ambiguous  *domain.AmbiguousMatchError
		validation *domain.ValidationError
		conflict   *domain.ConflictError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &ambiguous), errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &validation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
