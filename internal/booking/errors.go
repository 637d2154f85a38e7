package booking

import (
	"errors"
	"fmt"
)

var (
	ErrShowNotFound      = errors.New("selected show not found")
	ErrUserNotFound      = errors.New("please select a valid user")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrBookingExists     = errors.New("booking already exists")
	ErrInsufficientSeats = errors.New("not enough seats available")
	ErrInvalidSeatCount  = errors.New("number of seats must be at least 1")
	ErrInvalidStatus     = errors.New("status must be CONFIRMED or CANCELED")
	ErrShowBusy          = errors.New("show is busy, try again")
)

// SeatCountMismatchError reports a seat list whose size differs from the
// declared number of seats.
type SeatCountMismatchError struct {
	Actual   int
	Declared int
}

func (e *SeatCountMismatchError) Error() string {
	return fmt.Sprintf("Seat list count (%d) must equal Number of seats (%d).", e.Actual, e.Declared)
}

// IsValidation reports whether err is a rejected input rather than a
// missing record or infrastructure failure.
func IsValidation(err error) bool {
	var mismatch *SeatCountMismatchError
	return errors.As(err, &mismatch) ||
		errors.Is(err, ErrInvalidSeatCount) ||
		errors.Is(err, ErrInsufficientSeats) ||
		errors.Is(err, ErrInvalidStatus)
}
