package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/utils"
)

const actorKey = "actor"

// JWTAuth validates the Bearer access token and stores the caller as a
// model.Actor in the echo context.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			actor, err := utils.ParseAccessToken(secret, strings.TrimSpace(raw))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			SetActor(c, actor)
			return next(c)
		}
	}
}

// RequireRole lets the request through only when the actor has one of
// roles.  It must run after JWTAuth.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := ActorFrom(c)
			if !ok || !allowed[actor.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

// SetActor stores the authenticated caller.
func SetActor(c echo.Context, a model.Actor) { c.Set(actorKey, a) }

// ActorFrom returns the caller stored by JWTAuth.
func ActorFrom(c echo.Context) (model.Actor, bool) {
	a, ok := c.Get(actorKey).(model.Actor)
	return a, ok
}

// actorLabel identifies the caller in rate limit and log keys.
func actorLabel(c echo.Context) string {
	if a, ok := ActorFrom(c); ok {
		return strconv.FormatUint(a.ID, 10)
	}
	return "anon"
}
