package repository // repository holds data access logic for domain entities

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// ErrTheatreNotFound is returned when a theatre lookup fails.
var ErrTheatreNotFound = errors.New("theatre not found")

const theatreColumns = `idtheatres, name, location, total_seats, created_at`

// TheatreRepo provides methods to create and retrieve theatres.
type TheatreRepo struct {
	db *sqlx.DB
}

// NewTheatreRepo constructs a TheatreRepo with the given DB handle.
func NewTheatreRepo(db *sqlx.DB) *TheatreRepo { return &TheatreRepo{db: db} }

// List returns all theatres ordered by name.
func (r *TheatreRepo) List(ctx context.Context) ([]model.Theatre, error) {
	out := []model.Theatre{}
	err := conn(ctx, r.db).SelectContext(ctx, &out, `SELECT `+theatreColumns+` FROM theatres ORDER BY name, idtheatres`)
	return out, err
}

// GetByID retrieves a theatre.  It returns ErrTheatreNotFound when no row
// is found.
func (r *TheatreRepo) GetByID(ctx context.Context, id uint64) (*model.Theatre, error) {
	var t model.Theatre
	if err := conn(ctx, r.db).GetContext(ctx, &t, `SELECT `+theatreColumns+` FROM theatres WHERE idtheatres = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTheatreNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Create inserts a new theatre.  After insert the stored row, including
// created_at, is read back into t.
func (r *TheatreRepo) Create(ctx context.Context, t *model.Theatre) error {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO theatres (name, location, total_seats) VALUES (?, ?, ?)`,
		t.Name, t.Location, t.TotalSeats)
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
	*t = *stored
	return nil
}

// Update overwrites name, location and capacity.  Existing shows keep
// their available_seats; capacity changes are not pushed down.
func (r *TheatreRepo) Update(ctx context.Context, t *model.Theatre) error {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE theatres SET name = ?, location = ?, total_seats = ? WHERE idtheatres = ?`,
		t.Name, t.Location, t.TotalSeats, t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, t.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a theatre; ErrConflict when shows still reference it.
func (r *TheatreRepo) Delete(ctx context.Context, id uint64) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM theatres WHERE idtheatres = ?`, id)
	if err != nil {
		if isReferenced(err) {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTheatreNotFound
	}
	return nil
}
