package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/booking"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// BookingHandler serves /v1/bookings.  Users may only touch bookings they
// own; admins may act on any.
type BookingHandler struct {
	Service BookingService
	Reader  BookingReader
	Log     *zap.Logger
}

func NewBookingHandler(svc BookingService, r BookingReader, log *zap.Logger) *BookingHandler {
	if svc == nil || r == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BookingHandler{Service: svc, Reader: r, Log: log}
}

type createBookingReq struct {
	ID            uint64     `json:"id"` // optional; the store assigns one when absent
	ShowID        uint64     `json:"show_id"`
	MovieID       uint64     `json:"movie_id"`
	TheatreID     uint64     `json:"theatre_id"`
	UserID        uint64     `json:"user_id"`
	SeatNumbers   string     `json:"seat_numbers" validate:"max=255"`
	NumberOfSeats *int       `json:"number_of_seats" validate:"required"`
	TotalCents    *int64     `json:"total_cents" validate:"omitempty,min=0"`
	Status        string     `json:"status"`
	BookingDate   *time.Time `json:"booking_date"`
}

type updateBookingReq struct {
	SeatNumbers   string     `json:"seat_numbers" validate:"max=255"`
	NumberOfSeats *int       `json:"number_of_seats" validate:"required"`
	TotalCents    *int64     `json:"total_cents" validate:"omitempty,min=0"`
	Status        string     `json:"status"`
	BookingDate   *time.Time `json:"booking_date"`
}

func bookingLocation(k model.BookingKey) string {
	return "/v1/bookings/" + k.String()
}

// List returns bookings.  Users always get their own; admins may filter by
// userId or by a complete show key (sid, smid, stid).
func (h *BookingHandler) List(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var f repository.BookingFilter
	uid, err := parseQueryID(c, "userId")
	if err != nil {
		return err
	}
	if !a.IsAdmin() {
		uid = a.ID
	}
	if uid != 0 {
		f.UserID = &uid
	}
	show, err := showFilter(c)
	if err != nil {
		return err
	}
	f.Show = show

	ctx, cancel := reqCtx(c)
	defer cancel()
	items, err := h.Reader.List(ctx, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"data": items, "total": len(items)})
}

// ListForUser serves /v1/users/:id/bookings.
func (h *BookingHandler) ListForUser(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	uid, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if !a.CanActFor(uid) {
		return errJSON(c, http.StatusForbidden, "forbidden")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	items, err := h.Reader.List(ctx, repository.BookingFilter{UserID: &uid})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"data": items, "total": len(items)})
}

func showFilter(c echo.Context) (*model.ShowKey, error) {
	var k model.ShowKey
	var err error
	if k.ShowID, err = parseQueryID(c, "sid"); err != nil {
		return nil, err
	}
	if k.MovieID, err = parseQueryID(c, "smid"); err != nil {
		return nil, err
	}
	if k.TheatreID, err = parseQueryID(c, "stid"); err != nil {
		return nil, err
	}
	switch {
	case k.ShowID == 0 && k.MovieID == 0 && k.TheatreID == 0:
		return nil, nil
	case k.ShowID == 0 || k.MovieID == 0 || k.TheatreID == 0:
		return nil, echo.NewHTTPError(http.StatusBadRequest, "sid, smid and stid must be given together")
	}
	return &k, nil
}

// Get returns one booking with its display fields.
func (h *BookingHandler) Get(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	key, err := bookingKeyParam(c)
	if err != nil {
		return err
	}
	if !a.CanActFor(key.UserID) {
		return errJSON(c, http.StatusForbidden, "forbidden")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	d, err := h.Reader.Detail(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return errJSON(c, http.StatusNotFound, "booking not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, d)
}

// Create books seats.  user_id defaults to the caller.
func (h *BookingHandler) Create(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req createBookingReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.ShowID == 0 || req.MovieID == 0 || req.TheatreID == 0 {
		return errJSON(c, http.StatusBadRequest, "Please select a valid show.")
	}
	if req.UserID == 0 {
		req.UserID = a.ID
	}
	if !a.CanActFor(req.UserID) {
		return errJSON(c, http.StatusForbidden, "forbidden")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Service.Create(ctx, booking.Draft{
		BookingID:     req.ID,
		Show:          model.ShowKey{ShowID: req.ShowID, MovieID: req.MovieID, TheatreID: req.TheatreID},
		UserID:        req.UserID,
		SeatNumbers:   req.SeatNumbers,
		NumberOfSeats: *req.NumberOfSeats,
		TotalCents:    req.TotalCents,
		Status:        model.BookingStatus(req.Status),
		BookingDate:   req.BookingDate,
	})
	if err != nil {
		return h.fail(c, err, true)
	}
	c.Response().Header().Set(echo.HeaderLocation, bookingLocation(b.Key()))
	return c.JSON(http.StatusCreated, b)
}

// Update replaces seats, total, status or date of an existing booking.
// The key always comes from the path.
func (h *BookingHandler) Update(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	key, err := bookingKeyParam(c)
	if err != nil {
		return err
	}
	if !a.CanActFor(key.UserID) {
		return errJSON(c, http.StatusForbidden, "forbidden")
	}
	var req updateBookingReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Service.Update(ctx, key, booking.Changes{
		SeatNumbers:   req.SeatNumbers,
		NumberOfSeats: *req.NumberOfSeats,
		TotalCents:    req.TotalCents,
		Status:        model.BookingStatus(req.Status),
		BookingDate:   req.BookingDate,
	})
	if err != nil {
		return h.fail(c, err, false)
	}
	return c.JSON(http.StatusOK, b)
}

// Delete removes a booking and releases its seats when it was confirmed.
func (h *BookingHandler) Delete(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	key, err := bookingKeyParam(c)
	if err != nil {
		return err
	}
	if !a.CanActFor(key.UserID) {
		return errJSON(c, http.StatusForbidden, "forbidden")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if _, err := h.Service.Delete(ctx, key); err != nil {
		return h.fail(c, err, false)
	}
	return c.NoContent(http.StatusNoContent)
}

// fail maps workflow errors onto responses.  A missing show is a bad
// reference when creating and a missing resource otherwise.
func (h *BookingHandler) fail(c echo.Context, err error, creating bool) error {
	var mismatch *booking.SeatCountMismatchError
	switch {
	case errors.Is(err, booking.ErrBookingNotFound):
		return errJSON(c, http.StatusNotFound, "booking not found")
	case errors.Is(err, booking.ErrShowNotFound):
		if creating {
			return errJSON(c, http.StatusBadRequest, "Selected show not found.")
		}
		return errJSON(c, http.StatusNotFound, "show not found")
	case errors.Is(err, booking.ErrUserNotFound):
		return errJSON(c, http.StatusBadRequest, "Please select a valid user.")
	case errors.As(err, &mismatch):
		return errJSON(c, http.StatusBadRequest, mismatch.Error())
	case errors.Is(err, booking.ErrInvalidSeatCount):
		return errJSON(c, http.StatusBadRequest, "At least 1 seat must be booked.")
	case errors.Is(err, booking.ErrInsufficientSeats):
		return errJSON(c, http.StatusBadRequest, "Not enough seats available.")
	case errors.Is(err, booking.ErrInvalidStatus):
		return errJSON(c, http.StatusBadRequest, "Status must be CONFIRMED or CANCELED.")
	case errors.Is(err, booking.ErrBookingExists):
		return errJSON(c, http.StatusConflict, "booking already exists")
	case errors.Is(err, booking.ErrShowBusy):
		h.Log.Warn("show lock contended", zap.String("path", c.Request().URL.Path))
		c.Response().Header().Set("Retry-After", "1")
		return errJSON(c, http.StatusServiceUnavailable, "show is busy, try again")
	}
	return fmt.Errorf("booking: %w", err)
}
