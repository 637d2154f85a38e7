package model

import (
    "fmt"
    "time"
)

// ShowKey is the composite identity of a show.  A show is scoped to
// exactly one movie and one theatre, so all three ids are part of the
// primary key.
type ShowKey struct {
    ShowID    uint64 `db:"idshows" json:"id"`
    MovieID   uint64 `db:"movies_idmovies" json:"movie_id"`
    TheatreID uint64 `db:"theatres_idtheatres" json:"theatre_id"`
}

// String renders the key as "show/movie/theatre", the same order used in
// REST paths.
func (k ShowKey) String() string {
    return fmt.Sprintf("%d/%d/%d", k.ShowID, k.MovieID, k.TheatreID)
}

// Show represents a scheduled screening of a movie in a theatre.  The
// AvailableSeats counter is the seat inventory that bookings draw from.
//
// Fields:
//  ShowKey        – composite primary key (idshows, movie, theatre).
//  ShowDate       – calendar day of the screening.
//  ShowTime       – wall clock start time, "HH:MM:SS".
//  AvailableSeats – remaining seats; never negative.
//  PriceCents     – ticket price per seat in cents.
//  CreatedAt      – creation timestamp.
type Show struct {
    ShowKey
    ShowDate       time.Time `db:"show_date" json:"show_date"`             // shows.show_date
    ShowTime       string    `db:"show_time" json:"show_time"`             // shows.show_time
    AvailableSeats int       `db:"available_seats" json:"available_seats"` // shows.available_seats
    PriceCents     int64     `db:"price_cents" json:"price_cents"`         // shows.price_cents
    CreatedAt      time.Time `db:"created_at" json:"created_at"`           // shows.created_at
}

// Key returns the composite identity of the show.
func (s Show) Key() ShowKey { return s.ShowKey }

// ShowDetail is a show joined with the names of its movie and theatre,
// used by list endpoints.
type ShowDetail struct {
    Show
    MovieTitle   string `db:"movie_title" json:"movie_title"`
    TheatreName  string `db:"theatre_name" json:"theatre_name"`
    TotalSeats   int    `db:"total_seats" json:"total_seats"`
}
