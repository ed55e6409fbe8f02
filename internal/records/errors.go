package records

import (
	"errors"
	"net/http"
)

// Domain errors for workspace records.
var (
	ErrNotFound     = errors.New("workspace not found")
	ErrDuplicate    = errors.New("workspace already exists")
	ErrInvalidInput = errors.New("invalid workspace record")
)

// MapHTTPStatus maps record errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
