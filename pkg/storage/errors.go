package storage

import "errors"

// Sentinel errors for storage operations.
var (
	// ErrNotFound is returned when an analysis does not exist or has been deleted.
	ErrNotFound = errors.New("analysis not found")

	// ErrConflict is returned when an analysis with the given ID already exists.
	ErrConflict = errors.New("analysis already exists")
)
