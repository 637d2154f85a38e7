package repository

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// ShowQuery defines filters & pagination for listing shows.  Zero values
// disable a filter.
type ShowQuery struct {
	MovieID   uint64
	TheatreID uint64
	Date      *time.Time
	Page      int
	PageSize  int
}

// normalize clamps pagination to sane bounds.
func (q *ShowQuery) normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 20
	}
	if q.PageSize > 100 {
		q.PageSize = 100
	}
}

// Search lists shows with their movie and theatre names, ordered by date
// and time.  It returns the requested page and the total match count.
func (r *ShowRepo) Search(ctx context.Context, q ShowQuery) ([]model.ShowDetail, int64, error) {
	q.normalize()
	where := []string{}
	args := []interface{}{}

	if q.MovieID != 0 {
		where = append(where, "s.movies_idmovies = ?")
		args = append(args, q.MovieID)
	}
	if q.TheatreID != 0 {
		where = append(where, "s.theatres_idtheatres = ?")
		args = append(args, q.TheatreID)
	}
	if q.Date != nil {
		where = append(where, "s.show_date = ?")
		args = append(args, q.Date.Format("2006-01-02"))
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	db := conn(ctx, r.db)
	var total int64
	if err := db.GetContext(ctx, &total, `SELECT COUNT(*) FROM shows s WHERE `+cond, args...); err != nil {
		return nil, 0, err
	}

	dataSQL := `SELECT s.idshows, s.movies_idmovies, s.theatres_idtheatres, s.show_date, s.show_time,
			s.available_seats, s.price_cents, s.created_at,
			m.title AS movie_title, t.name AS theatre_name, t.total_seats
		FROM shows s
		JOIN movies m   ON m.idmovies = s.movies_idmovies
		JOIN theatres t ON t.idtheatres = s.theatres_idtheatres
		WHERE ` + cond + `
		ORDER BY s.show_date ASC, s.show_time ASC, s.idshows ASC
		LIMIT ? OFFSET ?`
	argsData := append(append([]interface{}{}, args...), q.PageSize, (q.Page-1)*q.PageSize)

	out := make([]model.ShowDetail, 0, q.PageSize)
	if err := db.SelectContext(ctx, &out, dataSQL, argsData...); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
