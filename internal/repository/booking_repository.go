package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// ErrBookingNotFound indicates that no booking matches the composite key.
var ErrBookingNotFound = errors.New("booking not found")

const bookingColumns = `idbookings, shows_idshows, shows_movies_idmovies, shows_theatres_idtheatres, users_idusers,
	seat_numbers, number_of_seats, booking_date, total_cents, status`

const bookingKeyWhere = `idbookings = ? AND shows_idshows = ? AND shows_movies_idmovies = ?
	AND shows_theatres_idtheatres = ? AND users_idusers = ?`

// BookingRepo is the booking ledger.  Rows are keyed by the five-part
// composite key (booking id, show key, user id); the booking id itself is
// AUTO_INCREMENT so concurrent inserts never collide.  All timestamps are
// stored in UTC.
type BookingRepo struct {
	db *sqlx.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sqlx.DB) *BookingRepo { return &BookingRepo{db: db} }

func bookingKeyArgs(k model.BookingKey) []interface{} {
	return []interface{}{k.BookingID, k.ShowID, k.MovieID, k.TheatreID, k.UserID}
}

// Get returns the booking with the given key or ErrBookingNotFound.
func (r *BookingRepo) Get(ctx context.Context, key model.BookingKey) (*model.Booking, error) {
	return r.get(ctx, key, "")
}

// GetForUpdate is Get with a row lock when called inside a transaction.
func (r *BookingRepo) GetForUpdate(ctx context.Context, key model.BookingKey) (*model.Booking, error) {
	if !InTx(ctx) {
		return r.get(ctx, key, "")
	}
	return r.get(ctx, key, " FOR UPDATE")
}

func (r *BookingRepo) get(ctx context.Context, key model.BookingKey, suffix string) (*model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE ` + bookingKeyWhere + suffix
	var b model.Booking
	if err := conn(ctx, r.db).GetContext(ctx, &b, q, bookingKeyArgs(key)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

// Insert stores a new booking.  A zero BookingID lets the database assign
// one; the generated id is written back to b.  A key collision yields
// ErrDuplicate, a dangling show or user reference ErrConflict.
func (r *BookingRepo) Insert(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings (idbookings, shows_idshows, shows_movies_idmovies, shows_theatres_idtheatres, users_idusers,
	                                 seat_numbers, number_of_seats, booking_date, total_cents, status)
	           VALUES (NULLIF(?, 0), ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := conn(ctx, r.db).ExecContext(ctx, q,
		b.BookingID, b.ShowID, b.MovieID, b.TheatreID, b.UserID,
		b.SeatNumbers, b.NumberOfSeats, b.BookingDate, b.TotalCents, b.Status)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		if isMissingParent(err) {
			return ErrConflict
		}
		return err
	}
	if b.BookingID == 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		b.BookingID = uint64(id)
	}
	return nil
}

// Replace overwrites the mutable columns of an existing booking.  It
// returns ErrBookingNotFound when the key does not exist.
func (r *BookingRepo) Replace(ctx context.Context, b *model.Booking) error {
	const q = `UPDATE bookings SET seat_numbers = ?, number_of_seats = ?, booking_date = ?, total_cents = ?, status = ?
	           WHERE ` + bookingKeyWhere
	args := append([]interface{}{b.SeatNumbers, b.NumberOfSeats, b.BookingDate, b.TotalCents, b.Status}, bookingKeyArgs(b.BookingKey)...)
	res, err := conn(ctx, r.db).ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	// zero rows also means "unchanged" in MySQL
	_, err = r.Get(ctx, b.BookingKey)
	return err
}

// Remove deletes a booking and returns the row as it was, so callers can
// inspect its status and seat count.
func (r *BookingRepo) Remove(ctx context.Context, key model.BookingKey) (*model.Booking, error) {
	b, err := r.GetForUpdate(ctx, key)
	if err != nil {
		return nil, err
	}
	res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM bookings WHERE `+bookingKeyWhere, bookingKeyArgs(key)...)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrBookingNotFound
	}
	return b, nil
}

// BookingFilter narrows List.  Nil fields are ignored.
type BookingFilter struct {
	UserID *uint64
	Show   *model.ShowKey
}

const bookingDetailSelect = `SELECT b.idbookings, b.shows_idshows, b.shows_movies_idmovies, b.shows_theatres_idtheatres, b.users_idusers,
		b.seat_numbers, b.number_of_seats, b.booking_date, b.total_cents, b.status,
		s.show_date, s.show_time, m.title AS movie_title, t.name AS theatre_name, u.username
	FROM bookings b
	JOIN shows s    ON s.idshows = b.shows_idshows AND s.movies_idmovies = b.shows_movies_idmovies AND s.theatres_idtheatres = b.shows_theatres_idtheatres
	JOIN movies m   ON m.idmovies = b.shows_movies_idmovies
	JOIN theatres t ON t.idtheatres = b.shows_theatres_idtheatres
	JOIN users u    ON u.idusers = b.users_idusers`

// List returns bookings joined with show, movie, theatre and user display
// fields, newest first.
func (r *BookingRepo) List(ctx context.Context, f BookingFilter) ([]model.BookingDetail, error) {
	where := []string{}
	args := []interface{}{}
	if f.UserID != nil {
		where = append(where, "b.users_idusers = ?")
		args = append(args, *f.UserID)
	}
	if f.Show != nil {
		where = append(where, "b.shows_idshows = ? AND b.shows_movies_idmovies = ? AND b.shows_theatres_idtheatres = ?")
		args = append(args, keyArgs(*f.Show)...)
	}
	q := bookingDetailSelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY b.booking_date DESC, b.idbookings DESC"

	out := []model.BookingDetail{}
	if err := conn(ctx, r.db).SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// Detail returns one booking with its display fields.
func (r *BookingRepo) Detail(ctx context.Context, key model.BookingKey) (*model.BookingDetail, error) {
	q := bookingDetailSelect + ` WHERE b.idbookings = ? AND b.shows_idshows = ? AND b.shows_movies_idmovies = ?
		AND b.shows_theatres_idtheatres = ? AND b.users_idusers = ?`
	var d model.BookingDetail
	if err := conn(ctx, r.db).GetContext(ctx, &d, q, bookingKeyArgs(key)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &d, nil
}
