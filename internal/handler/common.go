// Package handler exposes the HTTP handlers of the booking API.  Handlers
// depend on the small interfaces declared here so they can be exercised
// against in-memory fakes.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/model"
)

// requestTimeout bounds every database round trip made by a handler.
const requestTimeout = 5 * time.Second

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code,omitempty"`
}

// HTTPErrorHandler renders errors returned by handlers as ErrorResponse
// and logs server side failures.
func HTTPErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		message := "internal server error"
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if m, ok := he.Message.(string); ok {
				message = m
			} else {
				message = http.StatusText(code)
			}
		}
		if code >= http.StatusInternalServerError {
			log.Error("request failed",
				zap.Int("status", code),
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Error(err),
			)
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, ErrorResponse{Error: message, Code: code})
		}
		if err != nil {
			log.Error("write error response", zap.Error(err))
		}
	}
}

// Validator adapts validator/v10 to echo.  Failures become 400 responses
// naming the first offending JSON field.
type Validator struct {
	v *validator.Validate
}

// NewValidator returns a Validator that reports fields by their json name.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

// Validate implements echo.Validator.
func (cv *Validator) Validate(i interface{}) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		return echo.NewHTTPError(http.StatusBadRequest, fieldMessage(ves[0]))
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}

func fieldMessage(fe validator.FieldError) string {
	f := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required.", f)
	case "min":
		return fmt.Sprintf("%s must be at least %s.", f, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s.", f, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address.", f)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", f, fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must match %s.", f, fe.Param())
	}
	return fmt.Sprintf("%s is invalid.", f)
}

// bindAndValidate decodes the body into dst and runs the registered
// validator on it.
func bindAndValidate(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	return c.Validate(dst)
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// actor returns the authenticated caller.  Routes that call it are
// registered behind JWTAuth, so a missing actor is a wiring error.
func actor(c echo.Context) (model.Actor, error) {
	a, ok := middleware.ActorFrom(c)
	if !ok {
		return model.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return a, nil
}

func errJSON(c echo.Context, code int, msg string) error {
	return c.JSON(code, echo.Map{"error": msg})
}

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// parseQueryID reads an optional positive integer query parameter.  An
// absent parameter yields 0.
func parseQueryID(c echo.Context, name string) (uint64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func showKeyParam(c echo.Context) (model.ShowKey, error) {
	var k model.ShowKey
	var err error
	if k.ShowID, err = parseID(c, "id"); err != nil {
		return k, err
	}
	if k.MovieID, err = parseID(c, "movieId"); err != nil {
		return k, err
	}
	k.TheatreID, err = parseID(c, "theatreId")
	return k, err
}

func bookingKeyParam(c echo.Context) (model.BookingKey, error) {
	var k model.BookingKey
	var err error
	if k.BookingID, err = parseID(c, "id"); err != nil {
		return k, err
	}
	if k.ShowID, err = parseID(c, "sid"); err != nil {
		return k, err
	}
	if k.MovieID, err = parseID(c, "smid"); err != nil {
		return k, err
	}
	if k.TheatreID, err = parseID(c, "stid"); err != nil {
		return k, err
	}
	k.UserID, err = parseID(c, "uid")
	return k, err
}

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// parseDate accepts YYYY-MM-DD and returns midnight UTC.
func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, strings.TrimSpace(s), time.UTC)
}

// normalizeShowTime accepts HH:MM or HH:MM:SS and returns HH:MM:SS.
func normalizeShowTime(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{timeLayout + ":05", timeLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04:05"), true
		}
	}
	return "", false
}
