package model

import (
    "fmt"
    "strings"
    "time"
)

// BookingStatus is the lifecycle state of a booking.  Only CONFIRMED
// bookings hold seats in the show inventory.
type BookingStatus string

const (
    BookingConfirmed BookingStatus = "CONFIRMED"
    BookingCanceled  BookingStatus = "CANCELED"
)

// ParseBookingStatus normalizes s and reports whether it names a known
// status.  An empty string yields CONFIRMED, the default for new bookings.
func ParseBookingStatus(s string) (BookingStatus, bool) {
    switch BookingStatus(strings.ToUpper(strings.TrimSpace(s))) {
    case "", BookingConfirmed:
        return BookingConfirmed, true
    case BookingCanceled, "CANCELLED":
        return BookingCanceled, true
    }
    return "", false
}

// Confirmed reports whether the status holds inventory.
func (s BookingStatus) Confirmed() bool { return s == BookingConfirmed }

// BookingKey is the composite identity of a booking: its own id, the
// show it belongs to and the user who owns it.
type BookingKey struct {
    BookingID uint64 `db:"idbookings" json:"id"`
    ShowID    uint64 `db:"shows_idshows" json:"show_id"`
    MovieID   uint64 `db:"shows_movies_idmovies" json:"movie_id"`
    TheatreID uint64 `db:"shows_theatres_idtheatres" json:"theatre_id"`
    UserID    uint64 `db:"users_idusers" json:"user_id"`
}

// Show returns the key of the show the booking draws seats from.
func (k BookingKey) Show() ShowKey {
    return ShowKey{ShowID: k.ShowID, MovieID: k.MovieID, TheatreID: k.TheatreID}
}

// String renders the key in REST path order.
func (k BookingKey) String() string {
    return fmt.Sprintf("%d/%d/%d/%d/%d", k.BookingID, k.ShowID, k.MovieID, k.TheatreID, k.UserID)
}

// Booking is a row of the booking ledger.
//
// Fields:
//  BookingKey    – composite primary key.
//  SeatNumbers   – free text, comma separated seat labels.
//  NumberOfSeats – declared seat count; equals the parsed seat list size.
//  BookingDate   – when the booking was made.
//  TotalCents    – amount charged in cents.
//  Status        – CONFIRMED or CANCELED.
type Booking struct {
    BookingKey
    SeatNumbers   string        `db:"seat_numbers" json:"seat_numbers"`       // bookings.seat_numbers
    NumberOfSeats int           `db:"number_of_seats" json:"number_of_seats"` // bookings.number_of_seats
    BookingDate   time.Time     `db:"booking_date" json:"booking_date"`       // bookings.booking_date
    TotalCents    int64         `db:"total_cents" json:"total_cents"`         // bookings.total_cents
    Status        BookingStatus `db:"status" json:"status"`                   // bookings.status
}

// Key returns the composite identity of the booking.
func (b Booking) Key() BookingKey { return b.BookingKey }

// BookingDetail is a booking joined with the display fields of its show,
// movie, theatre and user.
type BookingDetail struct {
    Booking
    ShowDate    time.Time `db:"show_date" json:"show_date"`
    ShowTime    string    `db:"show_time" json:"show_time"`
    MovieTitle  string    `db:"movie_title" json:"movie_title"`
    TheatreName string    `db:"theatre_name" json:"theatre_name"`
    Username    string    `db:"username" json:"username"`
}
