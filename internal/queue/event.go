// Package queue defines message payloads exchanged over the message broker
// and the background consumer that records them.
package queue

// Event types published for booking changes.
const (
    EventBookingConfirmed = "booking.confirmed"
    EventBookingUpdated   = "booking.updated"
    EventBookingCanceled  = "booking.canceled"
    EventBookingDeleted   = "booking.deleted"
)

// BookingEvent is published after a booking transaction commits.  It
// carries enough information for downstream consumers to log, notify or
// trigger analytics without querying the primary database.
type BookingEvent struct {
    Type           string   `json:"type"`
    BookingID      uint64   `json:"booking_id"`
    ShowID         uint64   `json:"show_id"`
    MovieID        uint64   `json:"movie_id"`
    TheatreID      uint64   `json:"theatre_id"`
    UserID         uint64   `json:"user_id"`
    Seats          []string `json:"seats"`
    NumberOfSeats  int      `json:"number_of_seats"`
    TotalCents     int64    `json:"total_cents"`
    Status         string   `json:"status"`
    AvailableSeats int      `json:"available_seats"` // show inventory right after the change, -1 when unknown
    OccurredAt     string   `json:"occurred_at"`
}
