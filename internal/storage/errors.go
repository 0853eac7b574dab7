package storage

import "errors"

// Storage errors.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoData is returned when the summary table holds no rows at all,
	// so no epoch range can be established.
	ErrNoData = errors.New("no data in summary store")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
