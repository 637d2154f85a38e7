package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/cinema-booking/internal/booking"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

var (
	admin = model.Actor{ID: 1, Role: model.RoleAdmin}
	alice = model.Actor{ID: 7, Role: model.RoleUser}
)

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	e.HTTPErrorHandler = HTTPErrorHandler(nil)
	return e
}

// as authenticates every request as a.
func as(a model.Actor) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			middleware.SetActor(c, a)
			return next(c)
		}
	}
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// ----- booking -----

type MockBookingService struct{ mock.Mock }

func (m *MockBookingService) Create(ctx context.Context, d booking.Draft) (*model.Booking, error) {
	args := m.Called(ctx, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *MockBookingService) Update(ctx context.Context, key model.BookingKey, c booking.Changes) (*model.Booking, error) {
	args := m.Called(ctx, key, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *MockBookingService) Delete(ctx context.Context, key model.BookingKey) (*model.Booking, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

type MockBookingReader struct{ mock.Mock }

func (m *MockBookingReader) List(ctx context.Context, f repository.BookingFilter) ([]model.BookingDetail, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.BookingDetail), args.Error(1)
}

func (m *MockBookingReader) Detail(ctx context.Context, key model.BookingKey) (*model.BookingDetail, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BookingDetail), args.Error(1)
}

// ----- catalogue -----

type MockShowStore struct{ mock.Mock }

func (m *MockShowStore) Search(ctx context.Context, q repository.ShowQuery) ([]model.ShowDetail, int64, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]model.ShowDetail), args.Get(1).(int64), args.Error(2)
}

func (m *MockShowStore) GetDetail(ctx context.Context, key model.ShowKey) (*model.ShowDetail, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ShowDetail), args.Error(1)
}

func (m *MockShowStore) Create(ctx context.Context, s *model.Show) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockShowStore) Update(ctx context.Context, s *model.Show) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockShowStore) Delete(ctx context.Context, key model.ShowKey) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockShowStore) CountByMovie(ctx context.Context, movieID uint64) (int, error) {
	args := m.Called(ctx, movieID)
	return args.Int(0), args.Error(1)
}

func (m *MockShowStore) CountByTheatre(ctx context.Context, theatreID uint64) (int, error) {
	args := m.Called(ctx, theatreID)
	return args.Int(0), args.Error(1)
}

func (m *MockShowStore) ConfirmedSeats(ctx context.Context, key model.ShowKey) (int, error) {
	args := m.Called(ctx, key)
	return args.Int(0), args.Error(1)
}

type MockInventory struct{ mock.Mock }

func (m *MockInventory) SetAvailableSeats(ctx context.Context, key model.ShowKey, n int) (*model.Show, error) {
	args := m.Called(ctx, key, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Show), args.Error(1)
}

type MockMovieStore struct{ mock.Mock }

func (m *MockMovieStore) List(ctx context.Context) ([]model.Movie, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Movie), args.Error(1)
}

func (m *MockMovieStore) GetByID(ctx context.Context, id uint64) (*model.Movie, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Movie), args.Error(1)
}

func (m *MockMovieStore) Create(ctx context.Context, mv *model.Movie) error {
	return m.Called(ctx, mv).Error(0)
}

func (m *MockMovieStore) Update(ctx context.Context, mv *model.Movie) error {
	return m.Called(ctx, mv).Error(0)
}

func (m *MockMovieStore) Delete(ctx context.Context, id uint64) error {
	return m.Called(ctx, id).Error(0)
}

type MockTheatreStore struct{ mock.Mock }

func (m *MockTheatreStore) List(ctx context.Context) ([]model.Theatre, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Theatre), args.Error(1)
}

func (m *MockTheatreStore) GetByID(ctx context.Context, id uint64) (*model.Theatre, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Theatre), args.Error(1)
}

func (m *MockTheatreStore) Create(ctx context.Context, t *model.Theatre) error {
	return m.Called(ctx, t).Error(0)
}

func (m *MockTheatreStore) Update(ctx context.Context, t *model.Theatre) error {
	return m.Called(ctx, t).Error(0)
}

func (m *MockTheatreStore) Delete(ctx context.Context, id uint64) error {
	return m.Called(ctx, id).Error(0)
}

// ----- accounts -----

type MockUserStore struct{ mock.Mock }

func (m *MockUserStore) Create(ctx context.Context, u *model.User, password string, cost int) error {
	return m.Called(ctx, u, password, cost).Error(0)
}

func (m *MockUserStore) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserStore) List(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserStore) Update(ctx context.Context, u *model.User, password string, cost int) error {
	return m.Called(ctx, u, password, cost).Error(0)
}

func (m *MockUserStore) Delete(ctx context.Context, id uint64) error {
	return m.Called(ctx, id).Error(0)
}

type MockTokenStore struct{ mock.Mock }

func (m *MockTokenStore) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	return m.Called(ctx, userID, tokenHash, exp).Error(0)
}

func (m *MockTokenStore) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	args := m.Called(ctx, tokenHash)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockTokenStore) RevokeByHash(ctx context.Context, tokenHash string) error {
	return m.Called(ctx, tokenHash).Error(0)
}

func (m *MockTokenStore) RevokeAllForUser(ctx context.Context, userID uint64) error {
	return m.Called(ctx, userID).Error(0)
}
