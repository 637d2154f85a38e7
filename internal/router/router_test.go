package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/utils"
)

const secret = "router-secret"

// Stubs embed the interfaces they satisfy; only the methods a test reaches
// are implemented.
type (
	stubBookings struct{ handler.BookingService }
	stubReader   struct{ handler.BookingReader }
	stubShows    struct{ handler.ShowStore }
	stubTheatres struct{ handler.TheatreStore }
	stubUsers    struct{ handler.UserStore }
	stubTokens   struct{ handler.TokenStore }
	stubMovies   struct{ handler.MovieStore }
	stubSeats    struct{ handler.InventoryEditor }
)

func (stubMovies) List(context.Context) ([]model.Movie, error) {
	return []model.Movie{{ID: 1, Title: "Heat"}}, nil
}

func newTestRouter(t *testing.T) *echo.Echo {
	t.Helper()
	return New(Deps{
		Auth:      handler.NewAuthHandler(config.Config{JWTSecret: secret}, stubUsers{}, stubTokens{}, nil),
		Bookings:  handler.NewBookingHandler(stubBookings{}, stubReader{}, nil),
		Catalog:   handler.NewCatalogHandler(stubMovies{}, stubTheatres{}, stubShows{}, stubSeats{}, nil, nil),
		Users:     handler.NewUserHandler(stubUsers{}, 4),
		JWTSecret: secret,
	})
}

func bearer(t *testing.T, role model.Role) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, 7, role, time.Minute)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func serve(e *echo.Echo, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Probes(t *testing.T) {
	e := newTestRouter(t)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/readyz", "").Code)
}

func TestRouter_AccessRules(t *testing.T) {
	e := newTestRouter(t)
	user := bearer(t, model.RoleUser)

	rec := serve(e, http.MethodGet, "/v1/movies", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	cases := []struct {
		method, path, auth string
		want               int
	}{
		{http.MethodPost, "/v1/movies", "", http.StatusUnauthorized},
		{http.MethodPost, "/v1/movies", user, http.StatusForbidden},
		{http.MethodDelete, "/v1/theatres/1", user, http.StatusForbidden},
		{http.MethodPost, "/v1/shows", user, http.StatusForbidden},
		{http.MethodGet, "/v1/users", user, http.StatusForbidden},
		{http.MethodGet, "/v1/bookings", "", http.StatusUnauthorized},
		{http.MethodGet, "/v1/me", "Bearer garbage", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		rec := serve(e, tc.method, tc.path, tc.auth)
		assert.Equal(t, tc.want, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestCachePurger(t *testing.T) {
	assert.Nil(t, CachePurger(nil, "cache", nil))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, mr.Set("cache:abc", "x"))
	require.NoError(t, mr.Set("other:abc", "y"))

	CachePurger(rdb, "cache", nil)(context.Background())
	assert.False(t, mr.Exists("cache:abc"))
	assert.True(t, mr.Exists("other:abc"))
}
