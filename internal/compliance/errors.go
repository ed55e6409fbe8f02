package compliance

import "errors"

var (
	// ErrRejected indicates the compliance service answered with a
	// non-success status.
	ErrRejected = errors.New("compliance request rejected")
	// ErrNoAnalysis indicates the workspace has no analysis to refine.
	ErrNoAnalysis = errors.New("workspace has no analysis")
	// ErrEmptyReply indicates the compliance service succeeded without
	// returning the data the request asked for.
	ErrEmptyReply = errors.New("compliance reply carried no data")
)
