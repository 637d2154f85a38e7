package model

import "time"

// Movie is a film that can be scheduled in shows.
//
// Fields:
//  ID          – primary key identifier.
//  Title       – display title.
//  Genre       – free text genre.
//  Language    – spoken language.
//  Duration    – running time in minutes.
//  Rating      – optional score between 0.0 and 10.0.
//  Description – optional synopsis.
//  ReleaseDate – optional release day.
//  CreatedAt   – creation timestamp.
type Movie struct {
    ID          uint64     `db:"idmovies" json:"id"`                     // movies.idmovies
    Title       string     `db:"title" json:"title"`                     // movies.title
    Genre       string     `db:"genre" json:"genre"`                     // movies.genre
    Language    string     `db:"language" json:"language"`               // movies.language
    Duration    int        `db:"duration" json:"duration"`               // movies.duration
    Rating      *float64   `db:"rating" json:"rating,omitempty"`         // movies.rating (nullable)
    Description *string    `db:"description" json:"description,omitempty"` // movies.description (nullable)
    ReleaseDate *time.Time `db:"release_date" json:"release_date,omitempty"` // movies.release_date (nullable)
    CreatedAt   time.Time  `db:"created_at" json:"created_at"`           // movies.created_at
}
