package recordstore

import "errors"

var (
	// ErrNotFound indicates the record store has no such workspace or file.
	ErrNotFound = errors.New("record not found")
	// ErrUnavailable indicates the record store could not be reached.
	ErrUnavailable = errors.New("record store unavailable")
	// ErrConflict indicates the entry is already registered.
	ErrConflict = errors.New("record already exists")
)
