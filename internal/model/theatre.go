package model

import "time"

// Theatre is a screening room.  TotalSeats is the capacity every show in
// the theatre starts from.
//
// Fields:
//  ID         – primary key identifier.
//  Name       – display name.
//  Location   – address or area.
//  TotalSeats – seat capacity, at least one.
//  CreatedAt  – creation timestamp.
type Theatre struct {
    ID         uint64    `db:"idtheatres" json:"id"`          // theatres.idtheatres
    Name       string    `db:"name" json:"name"`              // theatres.name
    Location   string    `db:"location" json:"location"`      // theatres.location
    TotalSeats int       `db:"total_seats" json:"total_seats"` // theatres.total_seats
    CreatedAt  time.Time `db:"created_at" json:"created_at"`  // theatres.created_at
}
