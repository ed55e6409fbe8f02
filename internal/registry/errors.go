package registry

import (
	"errors"
	"net/http"
)

// Domain errors for the registry.
var (
	ErrNotFound     = errors.New("registry entry not found")
	ErrDuplicate    = errors.New("company already registered")
	ErrInvalidInput = errors.New("invalid registry entry")
)

// MapHTTPStatus maps registry errors to HTTP status codes.
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
