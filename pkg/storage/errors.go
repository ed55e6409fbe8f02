package storage

import (
	"errors"
	"net/http"
)

// Key and lookup errors returned by System.
var (
	ErrNotFound   = errors.New("storage: object not found")
	ErrEmptyKey   = errors.New("storage: empty key")
	ErrInvalidKey = errors.New("storage: key escapes its prefix")
)

// MapHTTPStatus maps a storage error to the status a handler responds with.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrEmptyKey), errors.Is(err, ErrInvalidKey):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
