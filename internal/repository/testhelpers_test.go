package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	return sqlx.NewDb(raw, "mysql"), mock
}

var showCols = []string{"idshows", "movies_idmovies", "theatres_idtheatres", "show_date", "show_time",
	"available_seats", "price_cents", "created_at"}

func showRow(available int) *sqlmock.Rows {
	day := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(showCols).AddRow(1, 2, 3, day, "19:30:00", available, 1250, day)
}
