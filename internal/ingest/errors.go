package ingest

import "errors"

var (
	// ErrUnretrievable indicates a source's bytes are neither buffered nor
	// downloadable from the record store.
	ErrUnretrievable = errors.New("source bytes unavailable")
	// ErrIncompleteStream indicates the extraction response ended without a
	// completion or error chunk.
	ErrIncompleteStream = errors.New("extraction ended without completion")
	// ErrExtraction wraps an error chunk reported by the extraction backend.
	ErrExtraction = errors.New("extraction failed")
)
