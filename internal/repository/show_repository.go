// Package repository contains data access logic. This file holds the show
// inventory store: shows are keyed by (idshows, movie, theatre) and carry
// the available_seats counter that bookings draw from.
package repository

import (
	"context"      // context for controlling query lifetime
	"database/sql" // sql provides ErrNoRows
	"errors"       // errors for sentinel definitions

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// ErrShowNotFound indicates that a show was not located in the DB.
var ErrShowNotFound = errors.New("show not found")

const showColumns = `idshows, movies_idmovies, theatres_idtheatres, show_date, show_time,
	available_seats, price_cents, created_at`

const showKeyWhere = `idshows = ? AND movies_idmovies = ? AND theatres_idtheatres = ?`

// ShowRepo manages persistence for shows.
type ShowRepo struct {
	db *sqlx.DB
}

// NewShowRepo constructs a ShowRepo with the given DB handle.
func NewShowRepo(db *sqlx.DB) *ShowRepo {
	return &ShowRepo{db: db}
}

func keyArgs(k model.ShowKey) []interface{} {
	return []interface{}{k.ShowID, k.MovieID, k.TheatreID}
}

// Get retrieves a show by its composite key.  It returns ErrShowNotFound
// if there is no matching row.
func (r *ShowRepo) Get(ctx context.Context, key model.ShowKey) (*model.Show, error) {
	return r.get(ctx, key, "")
}

// GetForUpdate is like Get but takes a row lock (SELECT ... FOR UPDATE)
// so concurrent writers of the same show serialize until the surrounding
// transaction ends.  Outside a transaction it behaves like Get.
func (r *ShowRepo) GetForUpdate(ctx context.Context, key model.ShowKey) (*model.Show, error) {
	if !InTx(ctx) {
		return r.get(ctx, key, "")
	}
	return r.get(ctx, key, " FOR UPDATE")
}

func (r *ShowRepo) get(ctx context.Context, key model.ShowKey, suffix string) (*model.Show, error) {
	q := `SELECT ` + showColumns + ` FROM shows WHERE ` + showKeyWhere + suffix
	var s model.Show
	if err := conn(ctx, r.db).GetContext(ctx, &s, q, keyArgs(key)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowNotFound
		}
		return nil, err
	}
	return &s, nil
}

// GetDetail returns the show joined with its movie title, theatre name and
// theatre capacity.
func (r *ShowRepo) GetDetail(ctx context.Context, key model.ShowKey) (*model.ShowDetail, error) {
	const q = `SELECT s.idshows, s.movies_idmovies, s.theatres_idtheatres, s.show_date, s.show_time,
	                  s.available_seats, s.price_cents, s.created_at,
	                  m.title AS movie_title, t.name AS theatre_name, t.total_seats
	           FROM shows s
	           JOIN movies m   ON m.idmovies = s.movies_idmovies
	           JOIN theatres t ON t.idtheatres = s.theatres_idtheatres
	           WHERE s.idshows = ? AND s.movies_idmovies = ? AND s.theatres_idtheatres = ?`
	var d model.ShowDetail
	if err := conn(ctx, r.db).GetContext(ctx, &d, q, keyArgs(key)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowNotFound
		}
		return nil, err
	}
	return &d, nil
}

// AdjustSeats adds delta to the show's available seats in a single guarded
// UPDATE.  The guard (available_seats + delta >= 0) makes the check and the
// write one atomic statement, so a negative delta that cannot be satisfied
// leaves the counter untouched and yields ErrInsufficientSeats.  A missing
// show yields ErrShowNotFound.  The updated row is returned.
func (r *ShowRepo) AdjustSeats(ctx context.Context, key model.ShowKey, delta int) (*model.Show, error) {
	if delta != 0 {
		const q = `UPDATE shows SET available_seats = available_seats + ?
		           WHERE ` + showKeyWhere + ` AND available_seats + ? >= 0`
		args := append([]interface{}{delta}, keyArgs(key)...)
		args = append(args, delta)
		res, err := conn(ctx, r.db).ExecContext(ctx, q, args...)
		if err != nil {
			return nil, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			// no row changed: either the show is gone or the guard refused the delta
			if _, err := r.Get(ctx, key); err != nil {
				return nil, err
			}
			return nil, ErrInsufficientSeats
		}
	}
	return r.Get(ctx, key)
}

// Create inserts a new show.  When ShowID is zero the database assigns it
// (AUTO_INCREMENT).  The stored row is read back to populate defaults.
func (r *ShowRepo) Create(ctx context.Context, s *model.Show) error {
	const q = `INSERT INTO shows (idshows, movies_idmovies, theatres_idtheatres, show_date, show_time, available_seats, price_cents)
	           VALUES (NULLIF(?, 0), ?, ?, ?, ?, ?, ?)`
	db := conn(ctx, r.db)
	res, err := db.ExecContext(ctx, q, s.ShowID, s.MovieID, s.TheatreID, s.ShowDate, s.ShowTime, s.AvailableSeats, s.PriceCents)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		if isMissingParent(err) {
			return ErrConflict
		}
		return err
	}
	if s.ShowID == 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		s.ShowID = uint64(id)
	}
	stored, err := r.Get(ctx, s.ShowKey)
	if err != nil {
		return err
	}
	*s = *stored
	return nil
}

// Update overwrites the schedule and price of a show.  The seat counter is
// left alone; it only moves through AdjustSeats and SetAvailableSeats.
// ErrShowNotFound is returned when the key does not exist.  Identical
// values are not an error.
func (r *ShowRepo) Update(ctx context.Context, s *model.Show) error {
	const q = `UPDATE shows SET show_date = ?, show_time = ?, price_cents = ?
	           WHERE ` + showKeyWhere
	args := append([]interface{}{s.ShowDate, s.ShowTime, s.PriceCents}, keyArgs(s.ShowKey)...)
	res, err := conn(ctx, r.db).ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	// MySQL reports 0 affected rows when nothing changed; tell that apart from a missing row
	_, err = r.Get(ctx, s.ShowKey)
	return err
}

// SetAvailableSeats overwrites the seat counter and returns the updated
// row.  It does not reconcile the counter with existing bookings; callers
// hold the show row lock and decide what the counter should be.
func (r *ShowRepo) SetAvailableSeats(ctx context.Context, key model.ShowKey, n int) (*model.Show, error) {
	const q = `UPDATE shows SET available_seats = ? WHERE ` + showKeyWhere
	args := append([]interface{}{n}, keyArgs(key)...)
	if _, err := conn(ctx, r.db).ExecContext(ctx, q, args...); err != nil {
		return nil, err
	}
	return r.Get(ctx, key)
}

// Delete removes a show.  If the show does not exist ErrShowNotFound is
// returned; if any bookings still reference it the delete is aborted with
// ErrConflict.  The check and the delete share one transaction.
func (r *ShowRepo) Delete(ctx context.Context, key model.ShowKey) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	// Ensure rollback or commit at the end
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	var one int
	err = tx.GetContext(ctx, &one, `SELECT 1 FROM shows WHERE `+showKeyWhere+` FOR UPDATE`, keyArgs(key)...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrShowNotFound
		}
		return err
	}
	var refs int
	err = tx.GetContext(ctx, &refs,
		`SELECT COUNT(*) FROM bookings WHERE shows_idshows = ? AND shows_movies_idmovies = ? AND shows_theatres_idtheatres = ?`,
		keyArgs(key)...)
	if err != nil {
		return err
	}
	if refs > 0 {
		return ErrConflict
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM shows WHERE `+showKeyWhere, keyArgs(key)...); err != nil {
		if isReferenced(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

// CountByMovie returns how many shows reference the movie.
func (r *ShowRepo) CountByMovie(ctx context.Context, movieID uint64) (int, error) {
	var n int
	err := conn(ctx, r.db).GetContext(ctx, &n, `SELECT COUNT(*) FROM shows WHERE movies_idmovies = ?`, movieID)
	return n, err
}

// CountByTheatre returns how many shows are scheduled in the theatre.
func (r *ShowRepo) CountByTheatre(ctx context.Context, theatreID uint64) (int, error) {
	var n int
	err := conn(ctx, r.db).GetContext(ctx, &n, `SELECT COUNT(*) FROM shows WHERE theatres_idtheatres = ?`, theatreID)
	return n, err
}

// ConfirmedSeats sums number_of_seats over the show's CONFIRMED bookings.
func (r *ShowRepo) ConfirmedSeats(ctx context.Context, key model.ShowKey) (int, error) {
	const q = `SELECT COALESCE(SUM(number_of_seats), 0) FROM bookings
	           WHERE shows_idshows = ? AND shows_movies_idmovies = ? AND shows_theatres_idtheatres = ?
	             AND status = 'CONFIRMED'`
	var n int
	err := conn(ctx, r.db).GetContext(ctx, &n, q, keyArgs(key)...)
	return n, err
}
