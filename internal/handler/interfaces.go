package handler

import (
	"context"
	"time"

	"github.com/iliyamo/cinema-booking/internal/booking"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// BookingService runs the seat inventory workflow.
type BookingService interface {
	Create(ctx context.Context, d booking.Draft) (*model.Booking, error)
	Update(ctx context.Context, key model.BookingKey, c booking.Changes) (*model.Booking, error)
	Delete(ctx context.Context, key model.BookingKey) (*model.Booking, error)
}

// BookingReader serves the joined booking views.
type BookingReader interface {
	List(ctx context.Context, f repository.BookingFilter) ([]model.BookingDetail, error)
	Detail(ctx context.Context, key model.BookingKey) (*model.BookingDetail, error)
}

// ShowStore is the show catalogue.
type ShowStore interface {
	Search(ctx context.Context, q repository.ShowQuery) ([]model.ShowDetail, int64, error)
	GetDetail(ctx context.Context, key model.ShowKey) (*model.ShowDetail, error)
	Create(ctx context.Context, s *model.Show) error
	Update(ctx context.Context, s *model.Show) error
	Delete(ctx context.Context, key model.ShowKey) error
	CountByMovie(ctx context.Context, movieID uint64) (int, error)
	CountByTheatre(ctx context.Context, theatreID uint64) (int, error)
	ConfirmedSeats(ctx context.Context, key model.ShowKey) (int, error)
}

// MovieStore is the movie catalogue.
type MovieStore interface {
	List(ctx context.Context) ([]model.Movie, error)
	GetByID(ctx context.Context, id uint64) (*model.Movie, error)
	Create(ctx context.Context, m *model.Movie) error
	Update(ctx context.Context, m *model.Movie) error
	Delete(ctx context.Context, id uint64) error
}

// TheatreStore is the theatre catalogue.
type TheatreStore interface {
	List(ctx context.Context) ([]model.Theatre, error)
	GetByID(ctx context.Context, id uint64) (*model.Theatre, error)
	Create(ctx context.Context, t *model.Theatre) error
	Update(ctx context.Context, t *model.Theatre) error
	Delete(ctx context.Context, id uint64) error
}

// UserStore manages accounts.
type UserStore interface {
	Create(ctx context.Context, u *model.User, password string, cost int) error
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, u *model.User, password string, cost int) error
	Delete(ctx context.Context, id uint64) error
}

// TokenStore persists hashed refresh tokens.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// InventoryEditor overwrites the seat counter of a show.  Implementations
// serialize with booking writers of the same show.
type InventoryEditor interface {
	SetAvailableSeats(ctx context.Context, key model.ShowKey, n int) (*model.Show, error)
}

// Purger drops cached catalogue responses after a write.
type Purger func(ctx context.Context)
