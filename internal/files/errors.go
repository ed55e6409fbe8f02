package files

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/licita/pkg/storage"
)

// Domain errors for workspace files.
var (
	ErrNotFound     = errors.New("file not found")
	ErrFileTooLarge = errors.New("file exceeds maximum upload size")
	ErrInvalidFile  = errors.New("invalid file")
)

// MapHTTPStatus maps file errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrInvalidFile), errors.Is(err, storage.ErrInvalidKey), errors.Is(err, storage.ErrEmptyKey):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
