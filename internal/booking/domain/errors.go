package domain

import "errors"

var (
	// ErrInvalidRange is returned when a requested time range is empty,
	// inverted, or exceeds the maximum bookable duration.
	ErrInvalidRange = errors.New("invalid time range")

	// ErrConflict is returned when a reservation overlaps an existing
	// non-cancelled booking on the same staff identity.
	ErrConflict = errors.New("booking conflicts with an existing booking")

	// ErrInvalidTransition is returned when a status change is not a
	// legal forward transition.
	ErrInvalidTransition = errors.New("invalid booking status transition")

	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")
)
