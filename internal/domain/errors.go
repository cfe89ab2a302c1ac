package domain

import (
	"errors"
	"fmt"
)

var (
	ErrResourceNotFound    = errors.New("resource not found or no longer open")
	ErrReservationNotFound = errors.New("reservation not found or not actionable")
	ErrInvalidRange        = errors.New("invalid hour range")
	ErrInvalidDay          = errors.New("invalid day")
	ErrCheckedIn           = errors.New("reservation already checked in")
	ErrEditNotAllowed      = errors.New("editing not allowed")
	ErrCancelNotAllowed    = errors.New("cancelling not allowed")
	ErrUserRequired        = errors.New("user id required")
	ErrInvalidID           = errors.New("invalid id")
	ErrTitleRequired       = errors.New("title required")
	ErrCategoryRequired    = errors.New("category id required")
	ErrInvalidWindow       = errors.New("invalid time window")
	ErrInvalidPolicy       = errors.New("invalid policy code")
)

// ConflictError reports the first hour-point of a candidate range that is
// already occupied by an active reservation.
type ConflictError struct {
	Hour int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("hour %d is already booked", e.Hour)
}

// AsConflict unwraps err into a ConflictError when it is one.
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
