package extraction

import "errors"

var (
	// ErrUnsupportedRoute indicates the route has no extraction endpoint.
	ErrUnsupportedRoute = errors.New("route has no extraction pipeline")
	// ErrNotComplete indicates a payload was requested from a non-completion chunk.
	ErrNotComplete = errors.New("chunk is not a completion")
	// ErrMalformedPayload indicates a completion whose payload cannot be decoded.
	ErrMalformedPayload = errors.New("malformed completion payload")
	// ErrUnexpectedContent indicates a reply with an unknown content type.
	ErrUnexpectedContent = errors.New("unexpected response content type")
)
