package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking/internal/model"
)

var showKey = model.ShowKey{ShowID: 1, MovieID: 2, TheatreID: 3}

func TestShowRepo_Get(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM shows WHERE")).WillReturnRows(showRow(40))

	s, err := NewShowRepo(db).Get(context.Background(), showKey)
	require.NoError(t, err)
	assert.Equal(t, showKey, s.Key())
	assert.Equal(t, 40, s.AvailableSeats)
	assert.Equal(t, int64(1250), s.PriceCents)
	assert.Equal(t, "19:30:00", s.ShowTime)
}

func TestShowRepo_GetNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM shows WHERE")).WillReturnRows(sqlmock.NewRows(showCols))

	_, err := NewShowRepo(db).Get(context.Background(), showKey)
	assert.ErrorIs(t, err, ErrShowNotFound)
}

func TestShowRepo_AdjustSeats(t *testing.T) {
	t.Run("guarded update applies the delta", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE shows SET available_seats = available_seats + ?")).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta("FROM shows WHERE")).WillReturnRows(showRow(7))

		s, err := NewShowRepo(db).AdjustSeats(context.Background(), showKey, -3)
		require.NoError(t, err)
		assert.Equal(t, 7, s.AvailableSeats)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("guard refuses negative result", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(regexp.QuoteMeta("available_seats + ? >= 0")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("FROM shows WHERE")).WillReturnRows(showRow(2))

		_, err := NewShowRepo(db).AdjustSeats(context.Background(), showKey, -3)
		assert.ErrorIs(t, err, ErrInsufficientSeats)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing show", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE shows")).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("FROM shows WHERE")).WillReturnRows(sqlmock.NewRows(showCols))

		_, err := NewShowRepo(db).AdjustSeats(context.Background(), showKey, 4)
		assert.ErrorIs(t, err, ErrShowNotFound)
	})

	t.Run("zero delta only reads", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM shows WHERE")).WillReturnRows(showRow(9))

		s, err := NewShowRepo(db).AdjustSeats(context.Background(), showKey, 0)
		require.NoError(t, err)
		assert.Equal(t, 9, s.AvailableSeats)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestShowRepo_UpdateLeavesSeatCounter(t *testing.T) {
	db, mock := newMockDB(t)
	day := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(`^UPDATE shows SET show_date = \?, show_time = \?, price_cents = \?\s+WHERE`).
		WithArgs(day, "21:00:00", int64(1500), uint64(1), uint64(2), uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := &model.Show{ShowKey: showKey, ShowDate: day, ShowTime: "21:00:00", AvailableSeats: 70, PriceCents: 1500}
	require.NoError(t, NewShowRepo(db).Update(context.Background(), s))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShowRepo_SetAvailableSeats(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE shows SET available_seats = ? WHERE")).
		WithArgs(25, uint64(1), uint64(2), uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM shows WHERE")).WillReturnRows(showRow(25))

	s, err := NewShowRepo(db).SetAvailableSeats(context.Background(), showKey, 25)
	require.NoError(t, err)
	assert.Equal(t, 25, s.AvailableSeats)
	assert.NoError(t, mock.ExpectationsWereMet())

	db, mock = newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE shows")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM shows WHERE")).WillReturnRows(sqlmock.NewRows(showCols))
	_, err = NewShowRepo(db).SetAvailableSeats(context.Background(), showKey, 25)
	assert.ErrorIs(t, err, ErrShowNotFound)
}

func TestShowRepo_GetForUpdateLocksInsideTx(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WillReturnRows(showRow(5))
	mock.ExpectCommit()

	repo := NewShowRepo(db)
	err := NewTxManager(db).WithinTx(context.Background(), func(ctx context.Context) error {
		_, err := repo.GetForUpdate(ctx, showKey)
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShowRepo_DeleteWithBookingsConflicts(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM shows")).WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM bookings")).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))
	mock.ExpectRollback()

	err := NewShowRepo(db).Delete(context.Background(), showKey)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShowRepo_SearchAppliesFilters(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM shows s WHERE s.movies_idmovies = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	cols := append(append([]string{}, showCols...), "movie_title", "theatre_name", "total_seats")
	day := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("LIMIT ? OFFSET ?")).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(1, 2, 3, day, "19:30:00", 10, 1250, day, "Heat", "Hall A", 40))

	out, total, err := NewShowRepo(db).Search(context.Background(), ShowQuery{MovieID: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, out, 1)
	assert.Equal(t, "Heat", out[0].MovieTitle)
	assert.Equal(t, 40, out[0].TotalSeats)
}
