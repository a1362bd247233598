package store

import "errors"

var (
	// ErrNotFound is returned when an item doesn't exist in the table.
	ErrNotFound = errors.New("rentiva: item not found")

	// ErrInvalidKey is returned when a partition or sort key is empty.
	// The operation is rejected before any I/O is attempted.
	ErrInvalidKey = errors.New("rentiva: invalid item key")

	// ErrInvalidIdentifier is returned when an entity identifier is empty
	// after generation was attempted.
	ErrInvalidIdentifier = errors.New("rentiva: invalid entity identifier")

	// ErrKindMismatch is returned when a stored item's type tag does not
	// match the kind it was requested as.
	ErrKindMismatch = errors.New("rentiva: item kind mismatch")

	// ErrUnavailable is returned when the backend cannot be reached or fails.
	// The store never retries internally; retry policy belongs to the caller.
	ErrUnavailable = errors.New("rentiva: store unavailable")
)

// unavailable wraps a backend error so callers can match ErrUnavailable
// while still inspecting the underlying SDK error.
func unavailable(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(ErrUnavailable, err)
}
