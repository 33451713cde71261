package store

import "errors"

var (
	// ErrNotFound is returned when a group, dataset or attribute does not exist
	ErrNotFound = errors.New("store: not found")

	// ErrInvalidName is returned for empty names or names containing '/' or NUL
	ErrInvalidName = errors.New("store: invalid name")

	// ErrCorrupt is returned when a stored value cannot be decoded
	ErrCorrupt = errors.New("store: corrupt value")
)
