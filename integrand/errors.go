package integrand

import "errors"

var (
	// ErrUnsupportedRepresentation is returned by Make when no registered
	// variant accepts a value
	ErrUnsupportedRepresentation = errors.New("integrand: unsupported representation")

	// ErrInvalidContraction is returned for contraction, projection or
	// combination requests a variant does not support: both axes of a sparse
	// matrix at once, partial projection of a 3-tensor, an axis set with no
	// prebuilt assembler, mismatched operand sizes
	ErrInvalidContraction = errors.New("integrand: invalid contraction")

	// ErrMalformedPersistedState is returned when a stored group lacks a
	// required entry or names an unregistered variant
	ErrMalformedPersistedState = errors.New("integrand: malformed persisted state")

	// ErrFrozen is returned when metadata is modified after EnsureShareable
	ErrFrozen = errors.New("integrand: frozen after EnsureShareable")
)
