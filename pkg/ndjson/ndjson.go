// Package ndjson decodes newline-delimited JSON streams.
//
// Values are yielded only for complete, newline-terminated lines. A line that
// fails to decode is reported through the skip callback and the stream
// continues. An unterminated fragment left at end of stream is never decoded.
package ndjson

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
)

// Skip describes a line that was not decoded.
type Skip struct {
	Line []byte
	// Err is the decode error, nil when the line was an unterminated fragment.
	Err error
	// Incomplete is set for the trailing fragment that never saw a newline.
	Incomplete bool
}

// Decode returns an iterator over the JSON values in r. Iteration stops at
// end of stream, on a read error, or when ctx is done; the latter two are
// yielded as the final error. onSkip may be nil.
func Decode[T any](ctx context.Context, r io.Reader, onSkip func(Skip)) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		br := bufio.NewReader(r)
		for {
			if err := ctx.Err(); err != nil {
				yield(zero, err)
				return
			}

			line, err := br.ReadBytes('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				yield(zero, err)
				return
			}
			if errors.Is(err, io.EOF) {
				if frag := bytes.TrimSpace(line); len(frag) > 0 && onSkip != nil {
					onSkip(Skip{Line: frag, Incomplete: true})
				}
				return
			}

			line = bytes.TrimSpace(line)
			if len(line) == 0 {
				continue
			}

			var v T
			if derr := json.Unmarshal(line, &v); derr != nil {
				if onSkip != nil {
					onSkip(Skip{Line: line, Err: derr})
				}
				continue
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}
