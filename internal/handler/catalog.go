package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/booking"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// CatalogHandler serves movies, theatres and shows.  Reads are public;
// writes are registered behind the ADMIN role.
type CatalogHandler struct {
	Movies   MovieStore
	Theatres TheatreStore
	Shows    ShowStore
	Seats    InventoryEditor
	Purge    Purger // optional, drops cached catalogue responses
	Log      *zap.Logger
}

func NewCatalogHandler(m MovieStore, t TheatreStore, s ShowStore, seats InventoryEditor, purge Purger, log *zap.Logger) *CatalogHandler {
	if m == nil || t == nil || s == nil || seats == nil {
		panic("nil repository passed to NewCatalogHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogHandler{Movies: m, Theatres: t, Shows: s, Seats: seats, Purge: purge, Log: log}
}

func (h *CatalogHandler) purge(ctx context.Context) {
	if h.Purge != nil {
		h.Purge(ctx)
	}
}

// conflict answers 409 with the short reason in X-Reason.
func conflict(c echo.Context, reason, msg string) error {
	c.Response().Header().Set("X-Reason", reason)
	return errJSON(c, http.StatusConflict, msg)
}

// ----- movies -----

type movieReq struct {
	Title       string   `json:"title" validate:"required,max=100"`
	Genre       string   `json:"genre" validate:"required,max=45"`
	Language    string   `json:"language" validate:"required,max=45"`
	Duration    int      `json:"duration" validate:"required,min=1"`
	Rating      *float64 `json:"rating" validate:"omitempty,min=0,max=10"`
	Description *string  `json:"description"`
	ReleaseDate string   `json:"release_date" validate:"omitempty,datetime=2006-01-02"`
}

func (r movieReq) apply(m *model.Movie) {
	m.Title = strings.TrimSpace(r.Title)
	m.Genre = strings.TrimSpace(r.Genre)
	m.Language = strings.TrimSpace(r.Language)
	m.Duration = r.Duration
	m.Rating = r.Rating
	m.Description = r.Description
	m.ReleaseDate = nil
	if d, err := parseDate(r.ReleaseDate); err == nil {
		m.ReleaseDate = &d
	}
}

func (h *CatalogHandler) ListMovies(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	items, err := h.Movies.List(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *CatalogHandler) GetMovie(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	m, err := h.Movies.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMovieNotFound) {
			return errJSON(c, http.StatusNotFound, "movie not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, m)
}

func (h *CatalogHandler) CreateMovie(c echo.Context) error {
	var req movieReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	var m model.Movie
	req.apply(&m)

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Movies.Create(ctx, &m); err != nil {
		return err
	}
	h.purge(ctx)
	c.Response().Header().Set(echo.HeaderLocation, "/v1/movies/"+strconv.FormatUint(m.ID, 10))
	return c.JSON(http.StatusCreated, m)
}

func (h *CatalogHandler) UpdateMovie(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req movieReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	m, err := h.Movies.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMovieNotFound) {
			return errJSON(c, http.StatusNotFound, "movie not found")
		}
		return err
	}
	req.apply(m)
	if err := h.Movies.Update(ctx, m); err != nil {
		return err
	}
	h.purge(ctx)
	return c.JSON(http.StatusOK, m)
}

// DeleteMovie refuses to remove a movie that still has shows.
func (h *CatalogHandler) DeleteMovie(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if _, err := h.Movies.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrMovieNotFound) {
			return errJSON(c, http.StatusNotFound, "movie not found")
		}
		return err
	}
	n, err := h.Shows.CountByMovie(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return conflict(c,
			fmt.Sprintf("Movie has %d scheduled show(s)", n),
			fmt.Sprintf("Cannot delete movie. It has %d scheduled show(s).", n))
	}
	if err := h.Movies.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrMovieNotFound):
			return errJSON(c, http.StatusNotFound, "movie not found")
		case errors.Is(err, repository.ErrConflict):
			return conflict(c, "Movie is referenced by existing records", "Cannot delete movie. It is referenced by existing records.")
		}
		return err
	}
	h.purge(ctx)
	return c.NoContent(http.StatusNoContent)
}

// ----- theatres -----

type theatreReq struct {
	Name       string `json:"name" validate:"required,max=45"`
	Location   string `json:"location" validate:"required,max=100"`
	TotalSeats int    `json:"total_seats" validate:"required,min=1"`
}

func (r theatreReq) apply(t *model.Theatre) {
	t.Name = strings.TrimSpace(r.Name)
	t.Location = strings.TrimSpace(r.Location)
	t.TotalSeats = r.TotalSeats
}

func (h *CatalogHandler) ListTheatres(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	items, err := h.Theatres.List(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *CatalogHandler) GetTheatre(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.Theatres.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTheatreNotFound) {
			return errJSON(c, http.StatusNotFound, "theatre not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, t)
}

func (h *CatalogHandler) CreateTheatre(c echo.Context) error {
	var req theatreReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	var t model.Theatre
	req.apply(&t)

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Theatres.Create(ctx, &t); err != nil {
		return err
	}
	h.purge(ctx)
	c.Response().Header().Set(echo.HeaderLocation, "/v1/theatres/"+strconv.FormatUint(t.ID, 10))
	return c.JSON(http.StatusCreated, t)
}

// UpdateTheatre edits a theatre.  Shows already scheduled keep their seat
// counters even when the capacity shrinks below them.
func (h *CatalogHandler) UpdateTheatre(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req theatreReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.Theatres.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTheatreNotFound) {
			return errJSON(c, http.StatusNotFound, "theatre not found")
		}
		return err
	}
	req.apply(t)
	if err := h.Theatres.Update(ctx, t); err != nil {
		return err
	}
	h.purge(ctx)
	return c.JSON(http.StatusOK, t)
}

func (h *CatalogHandler) DeleteTheatre(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if _, err := h.Theatres.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrTheatreNotFound) {
			return errJSON(c, http.StatusNotFound, "theatre not found")
		}
		return err
	}
	n, err := h.Shows.CountByTheatre(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return conflict(c,
			fmt.Sprintf("Theatre has %d scheduled show(s)", n),
			fmt.Sprintf("Cannot delete theatre. It has %d scheduled show(s).", n))
	}
	if err := h.Theatres.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrTheatreNotFound):
			return errJSON(c, http.StatusNotFound, "theatre not found")
		case errors.Is(err, repository.ErrConflict):
			return conflict(c, "Theatre is referenced by existing records", "Cannot delete theatre. It is referenced by existing records.")
		}
		return err
	}
	h.purge(ctx)
	return c.NoContent(http.StatusNoContent)
}

// ----- shows -----

type showReq struct {
	MovieID        uint64 `json:"movie_id"`
	TheatreID      uint64 `json:"theatre_id"`
	ShowDate       string `json:"show_date" validate:"required,datetime=2006-01-02"`
	ShowTime       string `json:"show_time" validate:"required"`
	AvailableSeats *int   `json:"available_seats" validate:"omitempty,min=0"`
	PriceCents     *int64 `json:"price_cents" validate:"required,min=0"`
}

// schedule parses date and time into s.
func (r showReq) schedule(s *model.Show) error {
	d, err := parseDate(r.ShowDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "show_date must match 2006-01-02.")
	}
	t, ok := normalizeShowTime(r.ShowTime)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "show_time must match HH:MM.")
	}
	s.ShowDate = d
	s.ShowTime = t
	s.PriceCents = *r.PriceCents
	return nil
}

func capacityError(c echo.Context, available, total int) error {
	return errJSON(c, http.StatusBadRequest,
		fmt.Sprintf("Available seats (%d) cannot exceed theatre capacity (%d).", available, total))
}

func showLocation(k model.ShowKey) string {
	return "/v1/shows/" + k.String()
}

// SearchShows lists shows filtered by movieId, theatreId and date
// (YYYY-MM-DD), paginated by page and page_size.
func (h *CatalogHandler) SearchShows(c echo.Context) error {
	var q repository.ShowQuery
	var err error
	if q.MovieID, err = parseQueryID(c, "movieId"); err != nil {
		return err
	}
	if q.TheatreID, err = parseQueryID(c, "theatreId"); err != nil {
		return err
	}
	if raw := strings.TrimSpace(c.QueryParam("date")); raw != "" {
		d, err := parseDate(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid date")
		}
		q.Date = &d
	}
	q.Page, _ = strconv.Atoi(c.QueryParam("page"))
	q.PageSize, _ = strconv.Atoi(c.QueryParam("page_size"))
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 20
	}
	if q.PageSize > 100 {
		q.PageSize = 100
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	items, total, err := h.Shows.Search(ctx, q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"data":      items,
		"total":     total,
		"page":      q.Page,
		"page_size": q.PageSize,
	})
}

func (h *CatalogHandler) GetShow(c echo.Context) error {
	key, err := showKeyParam(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.Shows.GetDetail(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrShowNotFound) {
			return errJSON(c, http.StatusNotFound, "show not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, s)
}

// CreateShow schedules a show.  available_seats defaults to the theatre
// capacity and may not exceed it.
func (h *CatalogHandler) CreateShow(c echo.Context) error {
	var req showReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if req.MovieID == 0 {
		return errJSON(c, http.StatusBadRequest, "Invalid movie: please select an existing movie.")
	}
	if _, err := h.Movies.GetByID(ctx, req.MovieID); err != nil {
		if errors.Is(err, repository.ErrMovieNotFound) {
			return errJSON(c, http.StatusBadRequest, "Invalid movie: please select an existing movie.")
		}
		return err
	}
	if req.TheatreID == 0 {
		return errJSON(c, http.StatusBadRequest, "Invalid theatre: please select an existing theatre.")
	}
	t, err := h.Theatres.GetByID(ctx, req.TheatreID)
	if err != nil {
		if errors.Is(err, repository.ErrTheatreNotFound) {
			return errJSON(c, http.StatusBadRequest, "Invalid theatre: please select an existing theatre.")
		}
		return err
	}

	s := model.Show{ShowKey: model.ShowKey{MovieID: req.MovieID, TheatreID: req.TheatreID}}
	if err := req.schedule(&s); err != nil {
		return err
	}
	s.AvailableSeats = t.TotalSeats
	if req.AvailableSeats != nil {
		s.AvailableSeats = *req.AvailableSeats
	}
	if s.AvailableSeats > t.TotalSeats {
		return capacityError(c, s.AvailableSeats, t.TotalSeats)
	}
	if err := h.Shows.Create(ctx, &s); err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderLocation, showLocation(s.Key()))
	return c.JSON(http.StatusCreated, s)
}

// UpdateShow edits schedule and price.  The seat counter is written only
// when the body carries available_seats, and then under the show locks so
// it cannot overwrite a concurrent booking.  The counter is not reconciled
// with the booking ledger; a divergence is only logged.
func (h *CatalogHandler) UpdateShow(c echo.Context) error {
	key, err := showKeyParam(c)
	if err != nil {
		return err
	}
	var req showReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	cur, err := h.Shows.GetDetail(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrShowNotFound) {
			return errJSON(c, http.StatusNotFound, "show not found")
		}
		return err
	}
	s := cur.Show
	if err := req.schedule(&s); err != nil {
		return err
	}
	if req.AvailableSeats != nil && *req.AvailableSeats > cur.TotalSeats {
		return capacityError(c, *req.AvailableSeats, cur.TotalSeats)
	}
	if err := h.Shows.Update(ctx, &s); err != nil {
		if errors.Is(err, repository.ErrShowNotFound) {
			return errJSON(c, http.StatusNotFound, "show not found")
		}
		return err
	}
	if req.AvailableSeats == nil {
		return c.JSON(http.StatusOK, s)
	}

	updated, err := h.Seats.SetAvailableSeats(ctx, key, *req.AvailableSeats)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrShowNotFound), errors.Is(err, repository.ErrShowNotFound):
			return errJSON(c, http.StatusNotFound, "show not found")
		case errors.Is(err, booking.ErrShowBusy):
			c.Response().Header().Set("Retry-After", "1")
			return errJSON(c, http.StatusServiceUnavailable, "show is busy, try again")
		}
		return err
	}
	s.AvailableSeats = updated.AvailableSeats
	h.checkInventory(ctx, s, cur.TotalSeats)
	return c.JSON(http.StatusOK, s)
}

// checkInventory warns when available seats plus confirmed seats no longer
// add up to the theatre capacity.
func (h *CatalogHandler) checkInventory(ctx context.Context, s model.Show, total int) {
	confirmed, err := h.Shows.ConfirmedSeats(ctx, s.Key())
	if err != nil {
		h.Log.Warn("confirmed seat count failed", zap.String("show", s.Key().String()), zap.Error(err))
		return
	}
	if s.AvailableSeats+confirmed != total {
		h.Log.Warn("show inventory diverges from bookings",
			zap.String("show", s.Key().String()),
			zap.Int("available_seats", s.AvailableSeats),
			zap.Int("confirmed_seats", confirmed),
			zap.Int("total_seats", total),
		)
	}
}

func (h *CatalogHandler) DeleteShow(c echo.Context) error {
	key, err := showKeyParam(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Shows.Delete(ctx, key); err != nil {
		switch {
		case errors.Is(err, repository.ErrShowNotFound):
			return errJSON(c, http.StatusNotFound, "show not found")
		case errors.Is(err, repository.ErrConflict):
			return conflict(c, "Show has existing bookings", "Cannot delete show. It has existing bookings.")
		}
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
