// Package router wires handlers and middleware onto an echo instance.
package router

import (
	"context"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/pkg/metrics"
)

// Deps are the collaborators of the HTTP layer.  Redis and Metrics may be
// nil; cache and rate limit then pass every request through.
type Deps struct {
	Auth     *handler.AuthHandler
	Bookings *handler.BookingHandler
	Catalog  *handler.CatalogHandler
	Users    *handler.UserHandler

	JWTSecret string
	Redis     *redis.Client
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	Metrics   *metrics.Metrics
	Log       *zap.Logger
	Ready     []handler.Check
}

// New builds the echo instance serving the API.
func New(d Deps) *echo.Echo {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.HTTPErrorHandler(d.Log)

	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(d.Log))
	if d.Metrics != nil {
		e.Use(middleware.Prometheus(d.Metrics))
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(d.Ready...))

	v1 := e.Group("/v1", middleware.RateLimit(d.RateLimit, d.Redis, d.Log))
	auth := middleware.JWTAuth(d.JWTSecret)
	admin := middleware.RequireRole(model.RoleAdmin)

	registerAuth(v1, d.Auth, auth)
	registerCatalog(v1, d.Catalog, middleware.ResponseCache(d.Cache, d.Redis, d.Log), auth, admin)
	registerBookings(v1, d.Bookings, auth)
	registerUsers(v1, d.Users, d.Bookings, auth, admin)
	return e
}

func registerAuth(g *echo.Group, a *handler.AuthHandler, auth echo.MiddlewareFunc) {
	ag := g.Group("/auth")
	ag.POST("/register", a.Register)
	ag.POST("/login", a.Login)
	ag.POST("/refresh", a.Refresh)
	ag.POST("/logout", a.Logout)

	g.GET("/me", a.Me, auth)
	g.POST("/logout", a.Logout, auth)
}

func registerCatalog(g *echo.Group, h *handler.CatalogHandler, cache, auth, admin echo.MiddlewareFunc) {
	g.GET("/movies", h.ListMovies, cache)
	g.GET("/movies/:id", h.GetMovie, cache)
	g.POST("/movies", h.CreateMovie, auth, admin)
	g.PUT("/movies/:id", h.UpdateMovie, auth, admin)
	g.DELETE("/movies/:id", h.DeleteMovie, auth, admin)

	g.GET("/theatres", h.ListTheatres, cache)
	g.GET("/theatres/:id", h.GetTheatre, cache)
	g.POST("/theatres", h.CreateTheatre, auth, admin)
	g.PUT("/theatres/:id", h.UpdateTheatre, auth, admin)
	g.DELETE("/theatres/:id", h.DeleteTheatre, auth, admin)

	// seat counters change with every booking, so shows are never cached
	g.GET("/shows", h.SearchShows)
	g.GET("/shows/:id/:movieId/:theatreId", h.GetShow)
	g.POST("/shows", h.CreateShow, auth, admin)
	g.PUT("/shows/:id/:movieId/:theatreId", h.UpdateShow, auth, admin)
	g.DELETE("/shows/:id/:movieId/:theatreId", h.DeleteShow, auth, admin)
}

func registerBookings(g *echo.Group, h *handler.BookingHandler, auth echo.MiddlewareFunc) {
	bg := g.Group("/bookings", auth)
	bg.GET("", h.List)
	bg.POST("", h.Create)
	bg.GET("/:id/:sid/:smid/:stid/:uid", h.Get)
	bg.PUT("/:id/:sid/:smid/:stid/:uid", h.Update)
	bg.DELETE("/:id/:sid/:smid/:stid/:uid", h.Delete)
}

func registerUsers(g *echo.Group, u *handler.UserHandler, b *handler.BookingHandler, auth, admin echo.MiddlewareFunc) {
	ug := g.Group("/users", auth)
	ug.GET("/:id/bookings", b.ListForUser)

	ug.GET("", u.List, admin)
	ug.GET("/:id", u.Get, admin)
	ug.POST("", u.Create, admin)
	ug.PUT("/:id", u.Update, admin)
	ug.DELETE("/:id", u.Delete, admin)
}

// CachePurger returns a handler.Purger dropping every cached catalogue
// response.  Failures are logged; the write that triggered the purge has
// already succeeded.
func CachePurger(rdb *redis.Client, prefix string, log *zap.Logger) handler.Purger {
	if rdb == nil {
		return nil
	}
	if log == nil {
		log = zap.NewNop()
	}
	return func(ctx context.Context) {
		if err := middleware.InvalidateCache(ctx, rdb, prefix); err != nil {
			log.Warn("cache purge failed", zap.String("prefix", prefix), zap.Error(err))
		}
	}
}
