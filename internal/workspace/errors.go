package workspace

import "errors"

var (
	// ErrIllegalTransition indicates a source status change outside the state machine.
	ErrIllegalTransition = errors.New("illegal source status transition")
	// ErrSourceNotFound indicates the source id is not part of the workspace.
	ErrSourceNotFound = errors.New("source not found")
	// ErrInvalidRecord indicates a record field could not be decoded.
	ErrInvalidRecord = errors.New("invalid workspace record")
)
