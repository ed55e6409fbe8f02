// Package extraction talks to the document extraction service that turns
// uploaded sources into analyses, fiscal identities, corporate acts, logos,
// and price documents.
package extraction

import (
	"context"
	"iter"
	"sync/atomic"

	"github.com/JaimeStill/licita/internal/workspace"
)

// Submission is one source sent for extraction.
type Submission struct {
	WorkspaceID string
	Route       workspace.Route
	Filename    string
	Data        []byte
	Force       bool
}

// Backend submits sources to the extraction service.
type Backend interface {
	Submit(ctx context.Context, sub Submission) (*Stream, error)
}

// Stream is the sequence of chunks produced by one submission.
// Ranging over Chunks more than once is not supported.
type Stream struct {
	seq     iter.Seq2[Chunk, error]
	close   func() error
	skipped atomic.Int64
}

// NewStream wraps seq. close may be nil.
func NewStream(seq iter.Seq2[Chunk, error], close func() error) *Stream {
	return &Stream{seq: seq, close: close}
}

// Chunks returns a finished stream over a fixed sequence of chunks.
func Chunks(chunks ...Chunk) *Stream {
	return NewStream(func(yield func(Chunk, error) bool) {
		for _, c := range chunks {
			if !yield(c, nil) {
				return
			}
		}
	}, nil)
}

// All iterates the stream's chunks.
func (s *Stream) All() iter.Seq2[Chunk, error] {
	return s.seq
}

// Skipped returns the number of malformed lines dropped so far.
func (s *Stream) Skipped() int64 {
	return s.skipped.Load()
}

// Close releases the underlying response.
func (s *Stream) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}
