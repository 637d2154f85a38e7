package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking/internal/model"
)

var bookingCols = []string{"idbookings", "shows_idshows", "shows_movies_idmovies", "shows_theatres_idtheatres", "users_idusers",
	"seat_numbers", "number_of_seats", "booking_date", "total_cents", "status"}

var bookingKey = model.BookingKey{BookingID: 9, ShowID: 1, MovieID: 2, TheatreID: 3, UserID: 4}

func TestBookingRepo_InsertAssignsGeneratedID(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).WillReturnResult(sqlmock.NewResult(42, 1))

	b := &model.Booking{
		BookingKey:    model.BookingKey{ShowID: 1, MovieID: 2, TheatreID: 3, UserID: 4},
		SeatNumbers:   "A1,A2",
		NumberOfSeats: 2,
		BookingDate:   time.Now().UTC(),
		TotalCents:    2500,
		Status:        model.BookingConfirmed,
	}
	require.NoError(t, NewBookingRepo(db).Insert(context.Background(), b))
	assert.Equal(t, uint64(42), b.BookingID)
}

func TestBookingRepo_InsertDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	b := &model.Booking{BookingKey: bookingKey, Status: model.BookingConfirmed}
	err := NewBookingRepo(db).Insert(context.Background(), b)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestBookingRepo_InsertDanglingShow(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WillReturnError(&mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"})

	err := NewBookingRepo(db).Insert(context.Background(), &model.Booking{BookingKey: bookingKey})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestBookingRepo_Get(t *testing.T) {
	db, mock := newMockDB(t)
	when := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE")).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(9, 1, 2, 3, 4, "A1, A2", 2, when, 2500, "CONFIRMED"))

	b, err := NewBookingRepo(db).Get(context.Background(), bookingKey)
	require.NoError(t, err)
	assert.Equal(t, bookingKey, b.Key())
	assert.Equal(t, model.BookingConfirmed, b.Status)
	assert.Equal(t, 2, b.NumberOfSeats)
}

func TestBookingRepo_RemoveReturnsDeletedRow(t *testing.T) {
	db, mock := newMockDB(t)
	when := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE")).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(9, 1, 2, 3, 4, "B1", 1, when, 900, "CANCELED"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM bookings")).WillReturnResult(sqlmock.NewResult(0, 1))

	b, err := NewBookingRepo(db).Remove(context.Background(), bookingKey)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCanceled, b.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_RemoveMissing(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE")).WillReturnRows(sqlmock.NewRows(bookingCols))

	_, err := NewBookingRepo(db).Remove(context.Background(), bookingKey)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestBookingRepo_ReplaceMissing(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE")).WillReturnRows(sqlmock.NewRows(bookingCols))

	err := NewBookingRepo(db).Replace(context.Background(), &model.Booking{BookingKey: bookingKey})
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestBookingRepo_ListFiltersByUser(t *testing.T) {
	db, mock := newMockDB(t)
	cols := append(append([]string{}, bookingCols...), "show_date", "show_time", "movie_title", "theatre_name", "username")
	when := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE b.users_idusers = ?")).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(9, 1, 2, 3, 4, "A1", 1, when, 1250, "CONFIRMED", when, "19:30:00", "Heat", "Hall A", "neo"))

	uid := uint64(4)
	out, err := NewBookingRepo(db).List(context.Background(), BookingFilter{UserID: &uid})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "neo", out[0].Username)
	assert.Equal(t, "Heat", out[0].MovieTitle)
}
