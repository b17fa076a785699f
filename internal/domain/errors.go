package domain

import (
	"errors"
	"fmt"
)

var (
	ErrListingNotFound      = errors.New("listing not found")
	ErrReservationNotFound  = errors.New("reservation not found")
	ErrUnauthorized         = errors.New("not authorized for this action")
	ErrInvalidRange         = errors.New("end date must be after start date")
	ErrBeforeAvailable      = errors.New("range starts before the listing is available")
	ErrAfterAvailable       = errors.New("range ends after the listing is available")
	ErrPastDeadline         = errors.New("listing is past its booking deadline")
	ErrSelfBookingDenied    = errors.New("hosts cannot reserve their own listing")
	ErrInvalidSqft          = errors.New("requested sqft must be positive")
	ErrInvalidCapacity      = errors.New("listing capacity must be positive")
	ErrInvalidPrice         = errors.New("price must be non-negative")
	ErrListingTitleRequired = errors.New("listing title required")
	ErrHoldExpired          = errors.New("reservation hold has expired")
	ErrAlreadyDecided       = errors.New("reservation has already been decided")
	ErrListingHasBookings   = errors.New("listing has active reservations")
	ErrWriteConflict        = errors.New("concurrent write conflict")
	ErrInvalidID            = errors.New("invalid id")
)

// CapacityError reports a rejected booking attempt together with how much
// capacity actually remains and which reservations held it, so callers can
// show "N sqft remain" feedback.
type CapacityError struct {
	AvailableSqft  int
	RequestedSqft  int
	ConflictingIDs []string
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("requested %d sqft but only %d available", e.RequestedSqft, e.AvailableSqft)
}

// IsCapacityExceeded unwraps err into a CapacityError if it is one.
func IsCapacityExceeded(err error) (*CapacityError, bool) {
	var ce *CapacityError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
