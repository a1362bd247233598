package rental

import "errors"

var (
	// ErrConstraintViolation is returned when a write references an owner
	// that does not exist: a car without its delegation, or a booking
	// without its car or user.
	ErrConstraintViolation = errors.New("rentiva: referenced entity not found")

	// ErrInvalidDateRange is returned when a date fails to parse as
	// YYYY-MM-DD or a range ends before it starts. Rejected before any
	// store access.
	ErrInvalidDateRange = errors.New("rentiva: invalid date range")
)
