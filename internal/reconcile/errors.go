package reconcile

import "errors"

// ErrRemote wraps a record store failure the engine recovered from.
var ErrRemote = errors.New("record store request failed")
