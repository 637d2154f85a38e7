package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestHTTPErrorHandler(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	e := echo.New()
	e.HTTPErrorHandler = HTTPErrorHandler(zap.New(core))
	e.GET("/boom", func(c echo.Context) error { return errors.New("db down") })
	e.GET("/teapot", func(c echo.Context) error { return echo.NewHTTPError(http.StatusTeapot, "short and stout") })

	rec := do(e, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error","code":500}`, rec.Body.String())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "/boom", logs.All()[0].ContextMap()["path"])

	rec = do(e, http.MethodGet, "/teapot", "")
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "short and stout", errorBody(t, rec.Body.Bytes()))
	assert.Equal(t, 1, logs.Len(), "client errors are not logged")

	rec = do(e, http.MethodGet, "/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReady(t *testing.T) {
	e := echo.New()
	e.GET("/readyz", Ready(
		Check{Name: "mysql", Ping: func(context.Context) error { return nil }},
		Check{Name: "redis", Ping: func(context.Context) error { return errors.New("connection refused") }},
	))
	e.GET("/healthz", Health)

	rec := do(e, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"mysql":"ok","redis":"connection refused"}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestNormalizeShowTime(t *testing.T) {
	for in, want := range map[string]string{
		"19:30":     "19:30:00",
		" 09:05:30": "09:05:30",
		"23:59:59":  "23:59:59",
	} {
		got, ok := normalizeShowTime(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "7pm", "25:00", "12:60"} {
		_, ok := normalizeShowTime(in)
		assert.False(t, ok, in)
	}
}

func TestValidatorUsesJSONNames(t *testing.T) {
	type req struct {
		TotalSeats int `json:"total_seats" validate:"required,min=1"`
	}
	err := NewValidator().Validate(&req{})
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Code)
	assert.Equal(t, "total_seats is required.", he.Message)
}
