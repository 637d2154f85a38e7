package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// ErrMovieNotFound is returned when a movie lookup fails.
var ErrMovieNotFound = errors.New("movie not found")

const movieColumns = `idmovies, title, genre, language, duration, rating, description, release_date, created_at`

// MovieRepo provides CRUD for the movie catalogue.
type MovieRepo struct {
	db *sqlx.DB
}

// NewMovieRepo constructs a MovieRepo with the given DB handle.
func NewMovieRepo(db *sqlx.DB) *MovieRepo { return &MovieRepo{db: db} }

// List returns all movies ordered by title.
func (r *MovieRepo) List(ctx context.Context) ([]model.Movie, error) {
	out := []model.Movie{}
	err := conn(ctx, r.db).SelectContext(ctx, &out, `SELECT `+movieColumns+` FROM movies ORDER BY title, idmovies`)
	return out, err
}

// GetByID retrieves a movie or ErrMovieNotFound.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (*model.Movie, error) {
	var m model.Movie
	if err := conn(ctx, r.db).GetContext(ctx, &m, `SELECT `+movieColumns+` FROM movies WHERE idmovies = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMovieNotFound
		}
		return nil, err
	}
	return &m, nil
}

// Create inserts m and reads the stored row back into it.
func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) error {
	const q = `INSERT INTO movies (title, genre, language, duration, rating, description, release_date)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := conn(ctx, r.db).ExecContext(ctx, q, m.Title, m.Genre, m.Language, m.Duration, m.Rating, m.Description, m.ReleaseDate)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	stored, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*m = *stored
	return nil
}

// Update overwrites every editable column of the movie.
func (r *MovieRepo) Update(ctx context.Context, m *model.Movie) error {
	const q = `UPDATE movies SET title = ?, genre = ?, language = ?, duration = ?, rating = ?, description = ?, release_date = ?
	           WHERE idmovies = ?`
	res, err := conn(ctx, r.db).ExecContext(ctx, q, m.Title, m.Genre, m.Language, m.Duration, m.Rating, m.Description, m.ReleaseDate, m.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, m.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a movie.  A movie still referenced by shows yields
// ErrConflict.
func (r *MovieRepo) Delete(ctx context.Context, id uint64) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM movies WHERE idmovies = ?`, id)
	if err != nil {
		if isReferenced(err) {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMovieNotFound
	}
	return nil
}
