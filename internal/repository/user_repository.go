package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/utils"
)

// ErrUserNotFound indicates that no user has the given id or username.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailExists is returned when username or email is already taken.
var ErrEmailExists = errors.New("username or email already exists")

const userColumns = `idusers, username, password_hash, email, role, created_at`

// UserRepo mirrors the 'users' table.
type UserRepo struct{ db *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Create hashes password with bcrypt at the given cost and inserts the
// user.  The generated ID is written back to u.
func (r *UserRepo) Create(ctx context.Context, u *model.User, password string, cost int) error {
	u.Username = strings.TrimSpace(u.Username)
	u.Email = normalizeEmail(u.Email)
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	res, err := conn(ctx, r.db).ExecContext(ctx,
		"INSERT INTO users (username, password_hash, email, role) VALUES (?,?,?,?)",
		u.Username, hash, u.Email, u.Role)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
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
	*u = *stored
	return nil
}

func (r *UserRepo) getOne(ctx context.Context, where string, arg interface{}) (*model.User, error) {
	var u model.User
	err := conn(ctx, r.db).GetContext(ctx, &u, "SELECT "+userColumns+" FROM users WHERE "+where+" LIMIT 1", arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return r.getOne(ctx, "idusers = ?", id)
}

// GetByUsername fetches a user by login name.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getOne(ctx, "username = ?", strings.TrimSpace(username))
}

// Exists reports whether a user with the id exists.
func (r *UserRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var n int
	if err := conn(ctx, r.db).GetContext(ctx, &n, "SELECT COUNT(*) FROM users WHERE idusers = ?", id); err != nil {
		return false, err
	}
	return n > 0, nil
}

// List returns all users ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	out := []model.User{}
	err := conn(ctx, r.db).SelectContext(ctx, &out, "SELECT "+userColumns+" FROM users ORDER BY idusers")
	return out, err
}

// Update writes username, email and role.  When password is non-empty it
// is re-hashed and replaced as well.
func (r *UserRepo) Update(ctx context.Context, u *model.User, password string, cost int) error {
	u.Username = strings.TrimSpace(u.Username)
	u.Email = normalizeEmail(u.Email)
	q := "UPDATE users SET username = ?, email = ?, role = ?"
	args := []interface{}{u.Username, u.Email, u.Role}
	if password != "" {
		hash, err := utils.HashPassword(password, cost)
		if err != nil {
			return err
		}
		q += ", password_hash = ?"
		args = append(args, hash)
	}
	q += " WHERE idusers = ?"
	args = append(args, u.ID)

	res, err := conn(ctx, r.db).ExecContext(ctx, q, args...)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, u.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a user.  Users that still own bookings cannot be removed
// (ErrConflict); their refresh tokens go with them.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, "DELETE FROM users WHERE idusers = ?", id)
	if err != nil {
		if isReferenced(err) {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}
