package cache

import "errors"

var (
	// ErrNotFound indicates the workspace is not in the cache.
	ErrNotFound = errors.New("workspace not found")
	// ErrDuplicate indicates a workspace with the same id is already cached.
	ErrDuplicate = errors.New("workspace already exists")
	// ErrCorrupt indicates the persisted cache could not be trusted and was discarded.
	ErrCorrupt = errors.New("persisted cache is corrupt")
)
