package model

import "errors"

var (
	// ErrInvalidInput marks a request rejected at a component boundary, such
	// as a non-positive quantity or a coordinate out of range. It is scoped to
	// a single surplus item.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDataQuality marks registry or inventory data that could not be
	// interpreted. Callers degrade instead of failing.
	ErrDataQuality = errors.New("data quality")
	// ErrUpstreamUnavailable marks a snapshot fetch or persistence handoff
	// that could not complete. It is fatal to a pipeline run.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)
