package booking

import "github.com/iliyamo/cinema-booking/internal/model"

// SeatDelta is the change to a show's available seats when a booking moves
// from (from, oldSeats) to (to, newSeats).  Only CONFIRMED bookings hold
// inventory:
//
//	CONFIRMED -> other      +oldSeats
//	other     -> CONFIRMED  -newSeats
//	CONFIRMED -> CONFIRMED  -(newSeats - oldSeats)
//	other     -> other      0
func SeatDelta(from, to model.BookingStatus, oldSeats, newSeats int) int {
	was, now := from.Confirmed(), to.Confirmed()
	switch {
	case was && !now:
		return oldSeats
	case !was && now:
		return -newSeats
	case was && now:
		return oldSeats - newSeats
	}
	return 0
}
