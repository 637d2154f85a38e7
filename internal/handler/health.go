package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is the liveness probe.  It returns a plain "ok" as long as the
// process serves requests.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Check is one dependency probed by Ready.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Ready is the readiness probe.  It pings every dependency and answers 503
// naming the ones that failed.
func Ready(checks ...Check) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := reqCtx(c)
		defer cancel()

		status := map[string]string{}
		code := http.StatusOK
		for _, ch := range checks {
			if err := ch.Ping(ctx); err != nil {
				status[ch.Name] = err.Error()
				code = http.StatusServiceUnavailable
				continue
			}
			status[ch.Name] = "ok"
		}
		return c.JSON(code, status)
	}
}
